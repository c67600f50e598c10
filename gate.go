package formlogin

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/formlogin/internal/rate"
	"github.com/rs/zerolog"
)

// Gate is the form login middleware. Build one with [New] and wrap the application
// with [Gate.Wrap].
type Gate struct {
	config Config

	passwords   PasswordBroker
	principals  PrincipalsBroker
	credentials CredentialBroker

	form    FormTemplate
	cookies *cookieCodec
	limiter *rate.Limiter
	metrics *Metrics
	audit   *auditDispatcher
	logger  zerolog.Logger
}

// Wrap returns app behind the gate.
func (g *Gate) Wrap(app http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case g.config.LoginPath:
			if r.Method == http.MethodPost {
				g.handleLogin(w, r)
				return
			}
			q := r.URL.Query()
			g.renderForm(w, http.StatusOK, FormOptions{
				Login:      q.Get("login"),
				RedirectTo: q.Get("redirect_to"),
				StatusMsg:  q.Get("status_msg"),
			})
		case g.config.LogoutPath:
			g.handleLogout(w, r)
		default:
			g.forward(w, r, app)
		}
	})
}

// Middleware is Wrap with the signature routers such as chi expect from r.Use.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return g.Wrap(next)
}

// Close flushes pending audit events. The gate keeps serving requests afterwards but
// emits no more audit events.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	g.audit.Close()
}

// MetricsSnapshot returns the current counters.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (g *Gate) AuditDropped() uint64 {
	return g.audit.Dropped()
}

func (g *Gate) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	login := r.PostForm.Get("login")
	password := r.PostForm.Get("password")
	redirectTo := r.Form.Get("redirect_to")
	ip := g.clientIP(r)

	if g.limiter != nil {
		if err := g.limiter.Check(ctx, login, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				g.fail(w, r, "throttle check", login, err)
				return
			}
			g.metrics.Inc(MetricLoginRateLimited)
			g.emit(ctx, AuditEvent{EventType: AuditLoginRateLimited, Login: login, IP: ip})
			g.renderForm(w, http.StatusTooManyRequests, FormOptions{
				Login:      login,
				RedirectTo: redirectTo,
				StatusMsg:  StatusTooManyAttempts,
			})
			return
		}
	}

	ok, err := g.passwords.CheckPassword(ctx, login, password)
	if err != nil {
		g.fail(w, r, "check password", login, err)
		return
	}
	if !ok {
		g.metrics.Inc(MetricLoginFailure)
		g.emit(ctx, AuditEvent{EventType: AuditLoginFailure, Login: login, IP: ip})
		if g.limiter != nil {
			if err := g.limiter.Failed(ctx, login, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				g.logger.Warn().Err(err).Msg("recording failed login")
			}
		}
		g.renderForm(w, http.StatusOK, FormOptions{
			Login:      login,
			RedirectTo: redirectTo,
			StatusMsg:  StatusBadCredentials,
		})
		return
	}

	// A token already held by this browser is replaced, not kept alive beside the new one.
	if previous, err := g.cookies.token(r); err == nil {
		if err := g.credentials.Logout(ctx, previous); err != nil {
			g.logger.Warn().Err(err).Msg("revoking previous credential")
		}
	}

	token, err := g.credentials.Login(ctx, login)
	if err != nil {
		g.fail(w, r, "issue credential", login, err)
		return
	}
	if err := g.cookies.set(w, token); err != nil {
		_ = g.credentials.Logout(ctx, token)
		g.fail(w, r, "encode cookie", login, err)
		return
	}

	if g.limiter != nil {
		if err := g.limiter.Reset(ctx, login, ip); err != nil {
			g.logger.Warn().Err(err).Msg("resetting login throttle")
		}
	}

	g.metrics.Inc(MetricLoginSuccess)
	g.emit(ctx, AuditEvent{EventType: AuditLoginSuccess, Login: login, IP: ip, Success: true})
	http.Redirect(w, r, g.target(r, redirectTo), http.StatusFound)
}

func (g *Gate) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	g.cookies.clear(w)

	if token, err := g.cookies.token(r); err == nil {
		if err := g.credentials.Logout(ctx, token); err != nil {
			g.fail(w, r, "revoke credential", "", err)
			return
		}
		g.emit(ctx, AuditEvent{EventType: AuditLogout, IP: g.clientIP(r), Success: true})
	}

	g.metrics.Inc(MetricLogout)
	http.Redirect(w, r, g.target(r, r.FormValue("redirect_to")), http.StatusFound)
}

func (g *Gate) forward(w http.ResponseWriter, r *http.Request, app http.Handler) {
	id, ok, err := g.resolve(r)
	if err != nil {
		g.fail(w, r, "resolve identity", "", err)
		return
	}

	req := r
	if ok {
		req = r.WithContext(WithIdentity(r.Context(), id))
	}

	if !g.config.Redirect401 && !g.config.Redirect403 {
		app.ServeHTTP(w, req)
		return
	}

	iw := newInterceptWriter(w, g.redirects)
	app.ServeHTTP(iw, req)

	status, hit := iw.intercepted()
	if !hit {
		iw.finish()
		return
	}

	switch status {
	case http.StatusUnauthorized:
		g.metrics.Inc(MetricRedirect401)
	case http.StatusForbidden:
		g.metrics.Inc(MetricRedirect403)
	}
	http.Redirect(w, r, g.loginURL(r), http.StatusFound)
}

// resolve maps the session cookie to an identity. A missing, undecodable or unknown
// cookie yields ok=false with no error.
func (g *Gate) resolve(r *http.Request) (Identity, bool, error) {
	token, err := g.cookies.token(r)
	if err != nil {
		if !errors.Is(err, errNoCookie) {
			g.metrics.Inc(MetricSessionMissing)
			g.logger.Debug().Err(err).Msg("undecodable session cookie")
		}
		return Identity{}, false, nil
	}

	ctx := r.Context()
	start := time.Now()

	login, ok, err := g.credentials.LoginFor(ctx, token)
	if err != nil {
		return Identity{}, false, err
	}
	if !ok {
		g.metrics.Inc(MetricSessionMissing)
		g.logger.Debug().Msg("stale session cookie")
		return Identity{}, false, nil
	}

	userID, err := g.principals.UserID(ctx, login)
	if err != nil {
		return Identity{}, false, err
	}
	principals, err := g.principals.Principals(ctx, login)
	if err != nil {
		return Identity{}, false, err
	}

	g.metrics.Observe(MetricResolveLatency, time.Since(start))
	g.metrics.Inc(MetricSessionResolved)

	return Identity{Login: login, UserID: userID, Principals: principals}, true, nil
}

func (g *Gate) redirects(status int) bool {
	switch status {
	case http.StatusUnauthorized:
		return g.config.Redirect401
	case http.StatusForbidden:
		return g.config.Redirect403
	default:
		return false
	}
}

func (g *Gate) renderForm(w http.ResponseWriter, status int, opts FormOptions) {
	body := g.form(opts)
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (g *Gate) fail(w http.ResponseWriter, r *http.Request, op, login string, err error) {
	g.metrics.Inc(MetricBrokerError)
	g.logger.Error().
		Err(err).
		Str("op", op).
		Str("path", r.URL.Path).
		Msg("broker failure")
	g.emit(r.Context(), AuditEvent{
		EventType: AuditBrokerError,
		Login:     login,
		IP:        g.clientIP(r),
		Error:     err.Error(),
		Metadata:  map[string]string{"op": op},
	})
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (g *Gate) emit(ctx context.Context, event AuditEvent) {
	if g.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	g.audit.Emit(ctx, event)
}

// siteURL is the scheme and host of r without a trailing slash.
func (g *Gate) siteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if g.config.TrustForwardedHeaders {
		if proto := firstValue(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
			scheme = proto
		}
		if fwd := firstValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
			host = fwd
		}
	}

	return scheme + "://" + host
}

func (g *Gate) loginURL(r *http.Request) string {
	return g.siteURL(r) + g.config.LoginPath
}

// target resolves a redirect_to value. Only same-site destinations are honored;
// everything else falls back to the site root.
func (g *Gate) target(r *http.Request, raw string) string {
	root := g.siteURL(r)
	if raw == "" {
		return root
	}

	u, err := url.Parse(raw)
	if err != nil {
		return root
	}

	if u.Scheme == "" && u.Host == "" {
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
			return root + raw
		}
		return root
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return root
	}
	if root != u.Scheme+"://"+u.Host {
		return root
	}
	return u.String()
}

func (g *Gate) clientIP(r *http.Request) string {
	if g.config.TrustForwardedHeaders {
		if ip := firstValue(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstValue(header string) string {
	if i := strings.IndexByte(header, ','); i >= 0 {
		header = header[:i]
	}
	return strings.TrimSpace(header)
}
