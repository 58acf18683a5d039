// Package sanitize bounds untrusted provider output into a strict company
// enrichment schema. Cleaning is best-effort: invalid fields are dropped and
// reported, never fatal.
package sanitize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// Field length caps, in characters.
const (
	maxDescription    = 2000
	maxIndustry       = 100
	maxHeadquarters   = 200
	maxProductSummary = 1000
	maxPricing        = 500
	maxCompanySize    = 50
	maxKeyPeople      = 10
	maxKeyPersonLen   = 200
	maxTechStack      = 20
	maxTechItemLen    = 100
	maxCitations      = 10
	minFoundedYear    = 1800
)

const defaultPhoneRegion = "US"

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// Phrases that betray a placeholder answer instead of real company data.
var placeholderPhrases = []string{
	"visit the website",
	"no information available",
	"no information found",
	"unable to find",
	"could not retrieve",
	"could not be found",
	"please check the website",
	"information is not available",
}

// SocialLinks holds pattern-validated company profile URLs.
type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// Empty reports whether no social link survived validation.
func (s SocialLinks) Empty() bool {
	return s.LinkedIn == "" && s.Twitter == "" && s.GitHub == ""
}

// EnrichedCompanyData is the validated enrichment payload.
type EnrichedCompanyData struct {
	Description    string      `json:"description,omitempty"`
	Industry       string      `json:"industry,omitempty"`
	Headquarters   string      `json:"headquarters,omitempty"`
	ProductSummary string      `json:"productSummary,omitempty"`
	Pricing        string      `json:"pricing,omitempty"`
	CompanySize    string      `json:"companySize,omitempty"`
	FoundedYear    int         `json:"foundedYear,omitempty"`
	KeyPeople      []string    `json:"keyPeople,omitempty"`
	TechStack      []string    `json:"techStack,omitempty"`
	SocialLinks    SocialLinks `json:"socialLinks"`
	ContactPhone   string      `json:"contactPhone,omitempty"`

	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
	Citations  []string `json:"citations,omitempty"`
	Degraded   bool     `json:"degraded,omitempty"`
}

// FieldNames lists the schema fields that carry data, for metrics.
func (d EnrichedCompanyData) FieldNames() []string {
	var names []string
	if d.Description != "" {
		names = append(names, "description")
	}
	if d.Industry != "" {
		names = append(names, "industry")
	}
	if d.Headquarters != "" {
		names = append(names, "headquarters")
	}
	if d.ProductSummary != "" {
		names = append(names, "productSummary")
	}
	if d.Pricing != "" {
		names = append(names, "pricing")
	}
	if d.CompanySize != "" {
		names = append(names, "companySize")
	}
	if d.FoundedYear != 0 {
		names = append(names, "foundedYear")
	}
	if len(d.KeyPeople) > 0 {
		names = append(names, "keyPeople")
	}
	if len(d.TechStack) > 0 {
		names = append(names, "techStack")
	}
	if !d.SocialLinks.Empty() {
		names = append(names, "socialLinks")
	}
	if d.ContactPhone != "" {
		names = append(names, "contactPhone")
	}
	return names
}

// Result carries the cleaned payload plus everything the caller may want to
// surface to the user about what was discarded.
type Result struct {
	Data     EnrichedCompanyData
	Warnings []string
	Dropped  []string
}

// Cleaner applies the schema rules. The clock is injectable so year bounds are
// testable.
type Cleaner struct {
	now         func() time.Time
	phoneRegion string
}

// Option configures optional Cleaner dependencies.
type Option func(*Cleaner)

// WithClock overrides the time source used for year range checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPhoneRegion sets the default region for phone number parsing.
func WithPhoneRegion(region string) Option {
	return func(c *Cleaner) {
		region = strings.ToUpper(strings.TrimSpace(region))
		if region != "" {
			c.phoneRegion = region
		}
	}
}

// NewCleaner builds a cleaner with sensible defaults.
func NewCleaner(opts ...Option) *Cleaner {
	c := &Cleaner{now: time.Now, phoneRegion: defaultPhoneRegion}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean validates an arbitrary provider-supplied object into the bounded
// schema. It never fails: fields that cannot be salvaged are dropped with a
// warning and the rest of the payload survives.
func (c *Cleaner) Clean(raw map[string]any, source string) Result {
	res := Result{Data: EnrichedCompanyData{Source: source}}
	if raw == nil {
		return res
	}

	res.Data.Description = c.cleanText(&res, "description", pick(raw, "description"), maxDescription)
	res.Data.Industry = c.cleanText(&res, "industry", pick(raw, "industry"), maxIndustry)
	res.Data.Headquarters = c.cleanText(&res, "headquarters", pick(raw, "headquarters", "location"), maxHeadquarters)
	res.Data.ProductSummary = c.cleanText(&res, "productSummary", pick(raw, "productSummary", "product_summary"), maxProductSummary)
	res.Data.Pricing = c.cleanText(&res, "pricing", pick(raw, "pricing"), maxPricing)
	res.Data.CompanySize = c.cleanText(&res, "companySize", pick(raw, "companySize", "company_size", "employees"), maxCompanySize)
	res.Data.FoundedYear = c.cleanFoundedYear(&res, pick(raw, "foundedYear", "founded_year", "founded"))
	res.Data.KeyPeople = c.cleanStringArray(&res, "keyPeople", pick(raw, "keyPeople", "key_people"), maxKeyPeople, maxKeyPersonLen)
	res.Data.TechStack = c.cleanStringArray(&res, "techStack", pick(raw, "techStack", "tech_stack"), maxTechStack, maxTechItemLen)
	res.Data.SocialLinks = c.cleanSocialLinks(&res, pick(raw, "socialLinks", "social_links"))
	res.Data.ContactPhone = c.cleanPhone(&res, pick(raw, "contactPhone", "contact_phone", "phone"))
	res.Data.Citations = c.cleanCitations(&res, pick(raw, "citations", "sources"))

	res.Data.Confidence = Confidence(res.Data)
	return res
}

// IsPlaceholder reports whether a description looks like provider boilerplate
// rather than real company information.
func IsPlaceholder(description string) bool {
	lowered := strings.ToLower(description)
	if strings.TrimSpace(lowered) == "" {
		return true
	}
	for _, phrase := range placeholderPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func (c *Cleaner) cleanText(res *Result, field string, value any, limit int) string {
	s, ok := asString(value)
	if !ok {
		if value != nil {
			res.drop(field, "expected a string")
		}
		return ""
	}
	cleaned := stripControl(s)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	if len([]rune(cleaned)) > limit {
		cleaned = truncate(cleaned, limit)
		res.warn(fmt.Sprintf("%s truncated to %d characters", field, limit))
	}
	return cleaned
}

func (c *Cleaner) cleanFoundedYear(res *Result, value any) int {
	if value == nil {
		return 0
	}
	var candidate string
	switch v := value.(type) {
	case string:
		candidate = v
	case float64:
		candidate = fmt.Sprintf("%.0f", v)
	case int:
		candidate = fmt.Sprintf("%d", v)
	default:
		res.drop("foundedYear", "expected a number or string")
		return 0
	}

	match := yearPattern.FindString(candidate)
	if match == "" {
		res.drop("foundedYear", "no 4-digit year found")
		return 0
	}
	year := 0
	fmt.Sscanf(match, "%d", &year)
	if year < minFoundedYear || year > c.now().Year() {
		res.drop("foundedYear", fmt.Sprintf("year %d outside valid range", year))
		return 0
	}
	return year
}

func (c *Cleaner) cleanStringArray(res *Result, field string, value any, maxItems, maxItemLen int) []string {
	if value == nil {
		return nil
	}
	items, ok := asStringSlice(value)
	if !ok {
		res.drop(field, "expected an array of strings")
		return nil
	}
	if len(items) > maxItems {
		res.warn(fmt.Sprintf("%s capped at %d entries", field, maxItems))
		items = items[:maxItems]
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		cleaned := strings.TrimSpace(stripControl(item))
		if cleaned == "" {
			continue
		}
		if len([]rune(cleaned)) > maxItemLen {
			cleaned = truncate(cleaned, maxItemLen)
		}
		out = append(out, cleaned)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Cleaner) cleanSocialLinks(res *Result, value any) SocialLinks {
	links := SocialLinks{}
	obj, ok := value.(map[string]any)
	if !ok {
		if value != nil {
			res.drop("socialLinks", "expected an object")
		}
		return links
	}

	for key, raw := range obj {
		candidate, ok := asString(raw)
		if !ok || strings.TrimSpace(candidate) == "" {
			continue
		}
		platform := strings.ToLower(strings.TrimSpace(key))
		cleaned, err := validateSocialURL(platform, candidate)
		if err != nil {
			res.drop("socialLinks."+platform, err.Error())
			continue
		}
		switch platform {
		case "linkedin":
			links.LinkedIn = cleaned
		case "twitter", "x":
			links.Twitter = cleaned
		case "github":
			links.GitHub = cleaned
		}
	}
	return links
}

func (c *Cleaner) cleanPhone(res *Result, value any) string {
	raw, ok := asString(value)
	if !ok || strings.TrimSpace(raw) == "" {
		return ""
	}
	number, err := phonenumbers.Parse(strings.TrimSpace(raw), c.phoneRegion)
	if err != nil {
		res.drop("contactPhone", "could not be parsed as a phone number")
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		res.drop("contactPhone", "not a valid phone number")
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

func (c *Cleaner) cleanCitations(res *Result, value any) []string {
	if value == nil {
		return nil
	}
	items, ok := asStringSlice(value)
	if !ok {
		res.drop("citations", "expected an array of strings")
		return nil
	}
	if len(items) > maxCitations {
		res.warn(fmt.Sprintf("citations capped at %d entries", maxCitations))
		items = items[:maxCitations]
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		u, err := url.Parse(strings.TrimSpace(item))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		link := u.String()
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateSocialURL(platform, raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url must use http or https")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")
	segments := strings.Split(path, "/")

	switch platform {
	case "linkedin":
		if host != "linkedin.com" {
			return "", fmt.Errorf("not a linkedin.com url")
		}
		if len(segments) < 2 || segments[0] != "company" || segments[1] == "" {
			return "", fmt.Errorf("only linkedin company pages are accepted")
		}
	case "twitter", "x":
		if host != "twitter.com" && host != "x.com" {
			return "", fmt.Errorf("not a twitter.com or x.com url")
		}
		if len(segments) != 1 || segments[0] == "" {
			return "", fmt.Errorf("expected a profile url")
		}
	case "github":
		if host != "github.com" {
			return "", fmt.Errorf("not a github.com url")
		}
		if path == "" || len(segments) > 2 {
			return "", fmt.Errorf("expected an organization or repository url")
		}
	default:
		return "", fmt.Errorf("unsupported platform")
	}
	u.Scheme = "https"
	return u.String(), nil
}

func (r *Result) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

func (r *Result) drop(field, reason string) {
	r.Dropped = append(r.Dropped, field)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s dropped: %s", field, reason))
}

func pick(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func asStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || r == 0x00 {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
