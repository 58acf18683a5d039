package observability

import (
	"net/http"
	"strings"
)

// Category is the coarse classification attached to every pipeline error.
type Category string

// The fixed error taxonomy. Every failure in the request path maps to
// exactly one of these.
const (
	CategoryAuth           Category = "auth_error"
	CategoryRateLimit      Category = "rate_limit"
	CategoryBalance        Category = "balance_error"
	CategoryValidation     Category = "validation_error"
	CategoryProvider       Category = "provider_error"
	CategoryTimeout        Category = "timeout_error"
	CategoryCircuitBreaker Category = "circuit_breaker"
	CategoryCache          Category = "cache_error"
	CategoryInternal       Category = "internal_error"
)

// Classified is an error with its category, HTTP status and the message safe
// to show the caller.
type Classified struct {
	Category    Category
	Status      int
	UserMessage string
}

type categoryRule struct {
	substrings []string
	category   Category
	// status overrides the category default when non-zero. Membership denial
	// shares the auth category but answers 403, not 401.
	status int
}

// Order matters: earlier rules win when an error mentions several concerns.
// Infrastructure failures during the membership lookup ("resolve workspace
// membership: ...") deliberately match nothing here and fall through to
// internal_error.
var categoryRules = []categoryRule{
	{[]string{"circuit breaker", "circuit open"}, CategoryCircuitBreaker, 0},
	{[]string{"rate limit", "too many requests"}, CategoryRateLimit, 0},
	{[]string{"insufficient balance", "balance"}, CategoryBalance, 0},
	{[]string{"not a member", "forbidden"}, CategoryAuth, http.StatusForbidden},
	{[]string{"unauthorized", "token", "jwt"}, CategoryAuth, 0},
	{[]string{"url", "hostname", "scheme", "credentials", "ip address", "top-level domain", "subdomain", "non-standard port", "workspaceid", "request body", "provider must be"}, CategoryValidation, 0},
	{[]string{"timeout", "deadline exceeded", "context canceled"}, CategoryTimeout, 0},
	{[]string{"cache"}, CategoryCache, 0},
	{[]string{"provider", "upstream", "status 5", "status 4", "decode"}, CategoryProvider, 0},
}

var categoryStatus = map[Category]int{
	CategoryAuth:           http.StatusUnauthorized,
	CategoryRateLimit:      http.StatusTooManyRequests,
	CategoryBalance:        http.StatusPaymentRequired,
	CategoryValidation:     http.StatusBadRequest,
	CategoryProvider:       http.StatusBadGateway,
	CategoryTimeout:        http.StatusGatewayTimeout,
	CategoryCircuitBreaker: http.StatusServiceUnavailable,
	CategoryCache:          http.StatusInternalServerError,
	CategoryInternal:       http.StatusInternalServerError,
}

var categoryMessage = map[Category]string{
	CategoryAuth:           "Authentication required or workspace access denied.",
	CategoryRateLimit:      "Rate limit exceeded. Please try again shortly.",
	CategoryBalance:        "Insufficient workspace balance for this request.",
	CategoryProvider:       "The enrichment provider returned an error. Please try again.",
	CategoryTimeout:        "The enrichment request timed out. Please try again.",
	CategoryCircuitBreaker: "The enrichment provider is temporarily unavailable. Please try again later.",
	CategoryCache:          "An internal cache error occurred.",
	CategoryInternal:       "An unexpected error occurred.",
}

// Classify maps an error to its category, HTTP status and user-safe message.
// Validation errors keep their original text: they describe a fixable input
// problem. Everything else gets the fixed message for its category.
func Classify(err error) Classified {
	if err == nil {
		return Classified{Category: CategoryInternal, Status: http.StatusInternalServerError, UserMessage: categoryMessage[CategoryInternal]}
	}

	text := strings.ToLower(err.Error())
	category := CategoryInternal
	status := 0
	for _, rule := range categoryRules {
		if matchesAny(text, rule.substrings) {
			category = rule.category
			status = rule.status
			break
		}
	}
	if status == 0 {
		status = categoryStatus[category]
	}

	message := categoryMessage[category]
	if category == CategoryValidation {
		message = err.Error()
	}

	return Classified{
		Category:    category,
		Status:      status,
		UserMessage: message,
	}
}

func matchesAny(text string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}
