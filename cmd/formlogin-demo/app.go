package main

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	formlogin "github.com/MrEthical07/formlogin"
	"github.com/MrEthical07/formlogin/internal/config"
	"github.com/MrEthical07/formlogin/internal/logging"
	"github.com/MrEthical07/formlogin/metrics/export/prometheus"
	authz "github.com/MrEthical07/formlogin/middleware"
)

const sweepInterval = time.Minute

type app struct {
	gate    *formlogin.Gate
	handler http.Handler
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	gateCfg, err := cfg.GateConfig()
	if err != nil {
		return nil, err
	}

	var rdb redis.UniversalClient
	if cfg.Store.Backend == config.StoreRedis || cfg.Throttle.Enabled {
		client, closeRedis, err := openRedis(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeRedis)
		rdb = client
	}

	credentials, closeStore, err := openCredentials(ctx, cfg.Store, rdb, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	dir, closeDir, err := openDirectory(ctx, cfg.Directory, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeDir)

	b := formlogin.New().
		WithConfig(gateCfg).
		WithPasswordBroker(dir).
		WithPrincipalsBroker(dir).
		WithCredentialBroker(credentials).
		WithLogger(logger)
	if rdb != nil {
		b = b.WithRedis(rdb)
	}
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(formlogin.NewLoggerSink(logger.With().Str("component", "audit").Logger()))
	}

	gate, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build gate: %w", err)
	}
	a.gate = gate
	a.closers = append(a.closers, gate.Close)
	logSecurityReport(logger, gate.SecurityReport())

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("casbin: %w", err)
	}
	if _, err := enforcer.AddPolicy("group.Administrators", "/admin/*", "GET|POST"); err != nil {
		return nil, fmt.Errorf("casbin policy: %w", err)
	}

	site := chi.NewRouter()
	site.Use(logging.Requests(logger))
	site.Get("/", homePage)
	site.With(authz.RequireUser).Get("/private", privatePage)
	site.Route("/admin", func(r chi.Router) {
		r.Use(authz.Authorize(enforcer))
		r.Get("/*", adminPage)
	})

	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.Recoverer)
	if cfg.Metrics.Enabled {
		root.Handle(cfg.Metrics.Path, prometheus.NewExporter(gate).Handler())
	}
	root.Mount("/", gate.Wrap(site))

	a.handler = root
	return a, nil
}

func logSecurityReport(logger zerolog.Logger, r formlogin.SecurityReport) {
	logger.Info().
		Str("cookie", r.CookieName).
		Bool("cookie_secure", r.CookieSecure).
		Bool("cookie_signed", r.CookieSigned).
		Bool("cookie_encrypted", r.CookieEncrypted).
		Bool("throttle", r.ThrottleActive).
		Bool("ip_throttle", r.IPThrottleActive).
		Bool("audit", r.AuditActive).
		Bool("metrics", r.MetricsActive).
		Msg("gate security report")
	for _, code := range r.Warnings {
		logger.Warn().Str("lint", code).Msg("gate configuration warning")
	}
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .User}}<p>Signed in as <b>{{.User}}</b> ({{range $i, $p := .Principals}}{{if $i}}, {{end}}{{$p}}{{end}}). <a href="/logout">Log out</a></p>
{{else}}<p>Not signed in. <a href="/login?redirect_to={{.Path}}">Log in</a></p>
{{end}}<ul>
<li><a href="/">home</a></li>
<li><a href="/private">private</a></li>
<li><a href="/admin/dashboard">admin</a></li>
</ul>
</body>
</html>
`))

type pageData struct {
	Title      string
	Path       string
	User       string
	Principals []string
}

func render(w http.ResponseWriter, r *http.Request, title string) {
	data := pageData{
		Title:      title,
		Path:       r.URL.Path,
		User:       formlogin.RemoteUser(r),
		Principals: formlogin.Principals(r),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTemplate.Execute(w, data)
}

func homePage(w http.ResponseWriter, r *http.Request)    { render(w, r, "Home") }
func privatePage(w http.ResponseWriter, r *http.Request) { render(w, r, "Private") }
func adminPage(w http.ResponseWriter, r *http.Request)   { render(w, r, "Admin "+chi.URLParam(r, "*")) }
