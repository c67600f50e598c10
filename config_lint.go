package formlogin

import (
	"errors"
	"fmt"
	"net/http"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings produced by [Config.Lint].
type LintResult []LintWarning

func (ws LintResult) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (ws LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (ws LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range ws.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}

// Lint reports settings that pass Validate but weaken the gate. It does not mutate c.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.Cookie.Secure {
		add("cookie_not_secure", LintWarn, "session cookie is sent over plain HTTP")
	}
	if !c.Cookie.HTTPOnly {
		add("cookie_not_httponly", LintHigh, "session cookie is readable from scripts")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		add("samesite_none_insecure", LintHigh, "SameSite=None cookies are rejected by browsers without Secure")
	}
	if len(c.Cookie.HashKey) == 0 {
		add("cookie_unsigned", LintInfo, "session cookie carries the raw credential token")
	}

	if !c.Throttle.Enabled {
		add("throttle_disabled", LintWarn, "failed logins are not rate limited")
	} else if !c.Throttle.EnableIPThrottle {
		add("ip_throttle_disabled", LintInfo, "failed logins are limited per login only")
	}

	if c.TrustForwardedHeaders {
		add("forwarded_headers_trusted", LintWarn, "X-Forwarded-* headers decide redirect host and client IP; only enable behind a proxy that sets them")
	}
	if !c.Redirect401 && !c.Redirect403 {
		add("redirects_disabled", LintInfo, "401 and 403 responses reach the client unchanged")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "login and logout decisions are not audited")
	}

	return ws
}
