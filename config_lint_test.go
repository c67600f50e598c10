package formlogin

import (
	"bytes"
	"errors"
	"net/http"
	"slices"
	"testing"
)

func TestLint_DefaultConfig(t *testing.T) {
	codes := DefaultConfig().Lint().Codes()

	for _, want := range []string{"cookie_not_secure", "cookie_unsigned", "throttle_disabled", "audit_disabled"} {
		if !slices.Contains(codes, want) {
			t.Errorf("expected %q for the default config, got %v", want, codes)
		}
	}
	for _, unwanted := range []string{"cookie_not_httponly", "samesite_none_insecure", "forwarded_headers_trusted", "redirects_disabled"} {
		if slices.Contains(codes, unwanted) {
			t.Errorf("default config should not produce %q", unwanted)
		}
	}
}

func TestLint_HardenedConfigIsQuiet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cookie.Secure = true
	cfg.Cookie.HashKey = bytes.Repeat([]byte("k"), 32)
	cfg.Throttle.Enabled = true
	cfg.Throttle.EnableIPThrottle = true
	cfg.Audit.Enabled = true

	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLint_Cases(t *testing.T) {
	cases := []struct {
		code   string
		sev    LintSeverity
		mutate func(*Config)
	}{
		{"cookie_not_httponly", LintHigh, func(c *Config) { c.Cookie.HTTPOnly = false }},
		{"samesite_none_insecure", LintHigh, func(c *Config) { c.Cookie.SameSite = http.SameSiteNoneMode }},
		{"ip_throttle_disabled", LintInfo, func(c *Config) { c.Throttle.Enabled = true }},
		{"forwarded_headers_trusted", LintWarn, func(c *Config) { c.TrustForwardedHeaders = true }},
		{"redirects_disabled", LintInfo, func(c *Config) { c.Redirect401 = false }},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			var found *LintWarning
			for _, w := range cfg.Lint() {
				if w.Code == tc.code {
					found = &w
					break
				}
			}
			if found == nil {
				t.Fatalf("expected %q warning", tc.code)
			}
			if found.Severity != tc.sev {
				t.Fatalf("expected severity %s, got %s", tc.sev, found.Severity)
			}
			if found.Message == "" {
				t.Fatal("expected a message")
			}
		})
	}
}

func TestLint_BySeverityAndAsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cookie.HTTPOnly = false
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "cookie_not_httponly" {
		t.Fatalf("expected only cookie_not_httponly at HIGH, got %v", high.Codes())
	}
	if len(ws.BySeverity(LintInfo)) != len(ws) {
		t.Fatal("INFO threshold must include every warning")
	}

	err := ws.AsError(LintHigh)
	if err == nil {
		t.Fatal("expected an error at HIGH")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 1 {
		t.Fatalf("expected one joined error, got %v", err)
	}

	if err := (LintResult{}).AsError(LintInfo); err != nil {
		t.Fatalf("empty result must not produce an error, got %v", err)
	}
}

func TestLint_DoesNotMutate(t *testing.T) {
	cfg := DefaultConfig()
	before := cfg
	_ = cfg.Lint()
	if cfg.Cookie.Secure != before.Cookie.Secure || cfg.Cookie.Name != before.Cookie.Name || cfg.Throttle != before.Throttle {
		t.Fatal("Lint must not modify the config")
	}
}

func TestLintSeverityString(t *testing.T) {
	if LintInfo.String() != "INFO" || LintWarn.String() != "WARN" || LintHigh.String() != "HIGH" {
		t.Fatal("unexpected severity names")
	}
	if got := LintSeverity(9).String(); got != "LintSeverity(9)" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}
