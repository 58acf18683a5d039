// Package urlcheck validates and normalizes company URLs before any network
// egress happens. Every rejection carries a specific human-readable reason.
package urlcheck

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

const maxURLLength = 2048

var idnaProfile = idna.Lookup

// Target is the validated, canonical form of a company URL.
type Target struct {
	// Origin is the canonical scheme://host form, always HTTPS.
	Origin string `json:"origin"`
	// Domain is the lowercase hostname with a leading "www." stripped.
	Domain string `json:"domain"`
	// CompanyName is a title-cased guess derived from the first domain label.
	CompanyName string `json:"company_name"`
}

// Hostnames that must never be reached regardless of how they resolve.
var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"localhost.localdomain":    {},
	"metadata":                 {},
	"metadata.google.internal": {},
	"instance-data":            {},
	"kubernetes.default":       {},
	"kubernetes.default.svc":   {},
}

// TLDs reserved for internal or test use.
var blockedTLDs = []string{
	".local",
	".localhost",
	".internal",
	".intranet",
	".corp",
	".home",
	".lan",
	".test",
	".invalid",
}

// Single-subdomain labels that strongly suggest an internal deployment.
var suspiciousSubdomains = map[string]struct{}{
	"admin":    {},
	"internal": {},
	"intranet": {},
	"staging":  {},
	"dev":      {},
	"debug":    {},
	"test":     {},
	"private":  {},
	"vpn":      {},
}

// Validate parses a raw company URL and returns its canonical target, or a
// rejection explaining exactly which rule failed. It never panics and performs
// no network I/O: all checks are string and address-range inspections.
func Validate(raw string) (*Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url must not be empty")
	}
	if len(raw) > maxURLLength {
		return nil, fmt.Errorf("url exceeds maximum length of %d characters", maxURLLength)
	}
	if !strings.Contains(raw, ".") && !strings.Contains(raw, "[") {
		// Dotless inputs like "localhost:3000" still deserve the precise
		// reserved-address reason rather than the generic missing-dot one.
		if _, blocked := blockedHostnames[bareHostname(raw)]; blocked {
			return nil, fmt.Errorf("hostname %q is an internal or reserved address", bareHostname(raw))
		}
		return nil, errors.New("url must contain a domain with at least one dot")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	// url.Parse unescapes the authority, so percent-encoding tricks have to
	// be caught on the raw input.
	if strings.Contains(bareHostname(raw), "%") {
		return nil, errors.New("hostname must not contain percent-encoding")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("url could not be parsed: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %q is not allowed, only https", u.Scheme)
	}
	u.Scheme = "https"

	if u.User != nil {
		return nil, errors.New("urls with embedded credentials are not allowed")
	}

	host := strings.ToLower(strings.Trim(u.Hostname(), "."))
	if host == "" {
		return nil, errors.New("url has no hostname")
	}

	if err := checkHostnameShape(host); err != nil {
		return nil, err
	}

	if _, blocked := blockedHostnames[host]; blocked {
		return nil, fmt.Errorf("hostname %q is an internal or reserved address", host)
	}

	isLiteralIP := false
	if ip := net.ParseIP(host); ip != nil {
		isLiteralIP = true
		if reason := blockedIPReason(ip); reason != "" {
			return nil, fmt.Errorf("ip address %s is not allowed: %s", host, reason)
		}
	}

	if !isLiteralIP {
		for _, tld := range blockedTLDs {
			if strings.HasSuffix(host, tld) {
				return nil, fmt.Errorf("top-level domain %q is reserved for internal use", tld)
			}
		}

		if err := checkSuspiciousSubdomain(host); err != nil {
			return nil, err
		}
	}

	if port := u.Port(); port != "" && port != "443" {
		return nil, fmt.Errorf("non-standard port %s is not allowed", port)
	}

	asciiHost := host
	if !isLiteralIP {
		var err error
		asciiHost, err = idnaProfile.ToASCII(host)
		if err != nil || asciiHost == "" {
			return nil, errors.New("hostname contains invalid international characters")
		}
	}

	domain := NormalizeDomain(asciiHost)

	return &Target{
		Origin:      "https://" + asciiHost,
		Domain:      domain,
		CompanyName: guessCompanyName(domain),
	}, nil
}

// NormalizeDomain lowercases a hostname and strips a leading "www." so that
// cache reads and writes agree on the key.
func NormalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(strings.Trim(host, ".")))
	host = strings.TrimPrefix(host, "www.")
	return host
}

func bareHostname(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

func checkHostnameShape(host string) error {
	if strings.Contains(host, "..") {
		return errors.New("hostname must not contain consecutive dots")
	}
	for _, r := range host {
		if r < 0x20 || r == 0x7f {
			return errors.New("hostname must not contain control characters")
		}
	}
	return nil
}

func checkSuspiciousSubdomain(host string) error {
	labels := strings.Split(host, ".")
	if len(labels) != 3 {
		return nil
	}
	if _, bad := suspiciousSubdomains[labels[0]]; bad {
		return fmt.Errorf("subdomain %q suggests an internal service", labels[0])
	}
	return nil
}

func blockedIPReason(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "loopback range"
	case isUniqueLocal(ip):
		return "unique-local range"
	case ip.IsPrivate():
		return "private range"
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return "link-local range"
	case ip.IsUnspecified():
		return "unspecified address"
	case isCarrierGradeNAT(ip):
		return "carrier-grade NAT range"
	}
	return ""
}

func isCarrierGradeNAT(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	return v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127
}

func isUniqueLocal(ip net.IP) bool {
	if ip.To4() != nil {
		return false
	}
	v6 := ip.To16()
	return v6 != nil && (v6[0]&0xfe) == 0xfc
}

func guessCompanyName(domain string) string {
	first, _, _ := strings.Cut(domain, ".")
	if first == "" {
		return ""
	}
	words := strings.Split(first, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
