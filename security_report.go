package formlogin

// SecurityReport summarizes the protections a built gate runs with.
type SecurityReport struct {
	LoginPath             string
	LogoutPath            string
	CookieName            string
	CookieSecure          bool
	CookieHTTPOnly        bool
	CookieSigned          bool
	CookieEncrypted       bool
	CookieMaxAge          int
	ThrottleActive        bool
	IPThrottleActive      bool
	TrustForwardedHeaders bool
	Redirect401           bool
	Redirect403           bool
	AuditActive           bool
	MetricsActive         bool
	Warnings              []string
}

// SecurityReport returns the effective settings and lint warning codes of the gate.
func (g *Gate) SecurityReport() SecurityReport {
	if g == nil {
		return SecurityReport{}
	}
	c := g.config

	return SecurityReport{
		LoginPath:             c.LoginPath,
		LogoutPath:            c.LogoutPath,
		CookieName:            c.Cookie.Name,
		CookieSecure:          c.Cookie.Secure,
		CookieHTTPOnly:        c.Cookie.HTTPOnly,
		CookieSigned:          len(c.Cookie.HashKey) > 0,
		CookieEncrypted:       len(c.Cookie.HashKey) > 0 && len(c.Cookie.BlockKey) > 0,
		CookieMaxAge:          c.Cookie.MaxAge,
		ThrottleActive:        g.limiter != nil,
		IPThrottleActive:      g.limiter != nil && c.Throttle.EnableIPThrottle,
		TrustForwardedHeaders: c.TrustForwardedHeaders,
		Redirect401:           c.Redirect401,
		Redirect403:           c.Redirect403,
		AuditActive:           g.audit != nil,
		MetricsActive:         g.metrics.Enabled(),
		Warnings:              c.Lint().Codes(),
	}
}
