package config

import (
	"testing"
	"time"
)

func TestParseRateLimit(t *testing.T) {
	tests := map[string]struct {
		input    string
		expect   RateLimitConfig
		expedErr bool
	}{
		"per minute":   {input: "30/min", expect: RateLimitConfig{Requests: 30, Interval: time.Minute}},
		"per second":   {input: "5/s", expect: RateLimitConfig{Requests: 5, Interval: time.Second}},
		"per hour":     {input: "100/hour", expect: RateLimitConfig{Requests: 100, Interval: time.Hour}},
		"spaces":       {input: " 10 / min ", expect: RateLimitConfig{Requests: 10, Interval: time.Minute}},
		"missing part": {input: "30", expedErr: true},
		"bad count":    {input: "abc/min", expedErr: true},
		"zero count":   {input: "0/min", expedErr: true},
		"bad unit":     {input: "30/day", expedErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseRateLimit(tt.input)
			if tt.expedErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %+v, got %+v", tt.expect, got)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.RateLimitEnrich.Requests != 30 || cfg.RateLimitEnrich.Interval != time.Minute {
		t.Fatalf("expected 30/min default, got %+v", cfg.RateLimitEnrich)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Fatalf("expected 24h cache TTL, got %s", cfg.CacheTTL)
	}
	if cfg.EnrichCostCents != 1 {
		t.Fatalf("expected 1 cent cost, got %d", cfg.EnrichCostCents)
	}
	if cfg.IsProduction() {
		t.Fatalf("expected non-production default")
	}
}

func TestIsProduction(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production mode")
	}
}
