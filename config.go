package formlogin

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config controls routing, cookie handling, redirects and the optional login throttle.
//
// Config instances are intended to be configured during initialization and then treated
// as immutable; Builder clones the value it receives.
type Config struct {
	LoginPath  string
	LogoutPath string

	// Redirect401 turns 401 responses from the wrapped handler into a redirect to LoginPath.
	Redirect401 bool
	// Redirect403 does the same for 403 responses.
	Redirect403 bool

	// TrustForwardedHeaders makes absolute redirect URLs honor X-Forwarded-Proto and
	// X-Forwarded-Host. Enable only behind a proxy that sets them.
	TrustForwardedHeaders bool

	Cookie   CookieConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the session cookie carrying the credential token.
//
// When HashKey is set the token is signed with gorilla/securecookie (and encrypted when
// BlockKey is also set); otherwise the raw token is the cookie value.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	// MaxAge in seconds; 0 issues a browser-session cookie.
	MaxAge int

	HashKey  []byte
	BlockKey []byte
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig limits failed login attempts per login (and optionally per client IP)
// using Redis counters.
type ThrottleConfig struct {
	Enabled          bool
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters exposed through [Gate.MetricsSnapshot].
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration matching the documented defaults:
// /login and /logout, cookie happy.login, redirect on 401 but not on 403.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		LoginPath:   "/login",
		LogoutPath:  "/logout",
		Redirect401: true,
		Redirect403: false,
		Cookie: CookieConfig{
			Name:     "happy.login",
			Path:     "/",
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxAttempts: 5,
			Cooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Cookie.HashKey != nil {
		out.Cookie.HashKey = append([]byte(nil), cfg.Cookie.HashKey...)
	}
	if cfg.Cookie.BlockKey != nil {
		out.Cookie.BlockKey = append([]byte(nil), cfg.Cookie.BlockKey...)
	}
	return out
}

// Validate reports the first configuration problem found, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	if !validPath(c.LoginPath) {
		return fmt.Errorf("%w: login path must start with a single /", ErrInvalidConfig)
	}
	if !validPath(c.LogoutPath) {
		return fmt.Errorf("%w: logout path must start with a single /", ErrInvalidConfig)
	}
	if c.LoginPath == c.LogoutPath {
		return fmt.Errorf("%w: login and logout paths must differ", ErrInvalidConfig)
	}

	if !validCookieName(c.Cookie.Name) {
		return fmt.Errorf("%w: invalid cookie name %q", ErrInvalidConfig, c.Cookie.Name)
	}
	if c.Cookie.MaxAge < 0 {
		return fmt.Errorf("%w: cookie max age must be >= 0", ErrInvalidConfig)
	}
	if len(c.Cookie.BlockKey) > 0 && len(c.Cookie.HashKey) == 0 {
		return fmt.Errorf("%w: cookie block key requires a hash key", ErrInvalidConfig)
	}
	if len(c.Cookie.HashKey) > 0 && len(c.Cookie.HashKey) < 32 {
		return fmt.Errorf("%w: cookie hash key must be >= 32 bytes", ErrInvalidConfig)
	}
	switch len(c.Cookie.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("%w: cookie block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return fmt.Errorf("%w: throttle max attempts must be > 0", ErrInvalidConfig)
		}
		if c.Throttle.Cooldown <= 0 {
			return fmt.Errorf("%w: throttle cooldown must be > 0", ErrInvalidConfig)
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("%w: audit buffer size must be > 0", ErrInvalidConfig)
	}

	return nil
}

func validPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//")
}

// validCookieName follows the RFC 6265 token grammar.
func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f {
			return false
		}
		if strings.IndexByte(`()<>@,;:\"/[]?={}`, c) >= 0 {
			return false
		}
	}
	return true
}
