package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
		status   int
	}{
		{"circuit breaker", errors.New("provider circuit breaker is open"), CategoryCircuitBreaker, http.StatusServiceUnavailable},
		{"rate limit", errors.New("rate limit exceeded for workspace"), CategoryRateLimit, http.StatusTooManyRequests},
		{"balance", errors.New("insufficient balance"), CategoryBalance, http.StatusPaymentRequired},
		{"auth token", errors.New("invalid or expired token"), CategoryAuth, http.StatusUnauthorized},
		{"not a member", errors.New("user is not a member of this workspace"), CategoryAuth, http.StatusForbidden},
		{"membership lookup outage", errors.New("resolve workspace membership: dial tcp: connection refused"), CategoryInternal, http.StatusInternalServerError},
		{"validation url", errors.New("url must use https"), CategoryValidation, http.StatusBadRequest},
		{"validation hostname", errors.New(`hostname "localhost" is an internal or reserved address`), CategoryValidation, http.StatusBadRequest},
		{"timeout", errors.New("context deadline exceeded"), CategoryTimeout, http.StatusGatewayTimeout},
		{"provider", errors.New("provider compound returned status 503"), CategoryProvider, http.StatusBadGateway},
		{"cache", errors.New("cache write failed"), CategoryCache, http.StatusInternalServerError},
		{"unknown", errors.New("something odd happened"), CategoryInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Category != tt.category {
				t.Fatalf("expected category %s, got %s", tt.category, got.Category)
			}
			if got.Status != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, got.Status)
			}
		})
	}
}

func TestClassifyValidationKeepsOriginalMessage(t *testing.T) {
	err := errors.New(`ip address 192.168.1.5 is not allowed: private range`)
	got := Classify(err)
	if got.Category != CategoryValidation {
		t.Fatalf("expected validation category, got %s", got.Category)
	}
	if got.UserMessage != err.Error() {
		t.Fatalf("expected validation message verbatim, got %q", got.UserMessage)
	}
}

func TestClassifyHidesInternalDetails(t *testing.T) {
	err := fmt.Errorf("provider compound returned status 503: %s", `{"error":"quota exceeded upstream"}`)
	got := Classify(err)
	if strings.Contains(got.UserMessage, "quota exceeded upstream") {
		t.Fatalf("expected provider body hidden from user message, got %q", got.UserMessage)
	}
}

func TestClassifyNilError(t *testing.T) {
	got := Classify(nil)
	if got.Category != CategoryInternal {
		t.Fatalf("expected internal category for nil, got %s", got.Category)
	}
}

func TestNewRequestIDShape(t *testing.T) {
	id := NewRequestID()
	if !strings.HasPrefix(id, "req_") {
		t.Fatalf("expected req_ prefix, got %q", id)
	}
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		t.Fatalf("expected three segments, got %q", id)
	}
	if len(parts[2]) != 6 {
		t.Fatalf("expected 6 character suffix, got %q", parts[2])
	}
	if NewRequestID() == id {
		t.Fatalf("expected ids to differ")
	}
}
