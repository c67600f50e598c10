package main

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/formlogin/internal/config"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := newApp(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func login(t *testing.T, c *http.Client, base, pw string) *http.Response {
	t.Helper()
	resp, err := c.PostForm(base+"/login", url.Values{
		"login":       {demoLogin},
		"password":    {pw},
		"redirect_to": {"/admin/dashboard"},
	})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	_ = resp.Body.Close()
	return resp
}

func runDemoFlow(t *testing.T, srv *httptest.Server) {
	c := newClient(t)

	resp, _ := get(t, c, srv.URL+"/private")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != srv.URL+"/login" {
		t.Fatalf("anonymous /private: expected redirect to login, got %d %q",
			resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = login(t, c, srv.URL, demoPassword)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != srv.URL+"/admin/dashboard" {
		t.Fatalf("login: expected redirect to admin, got %d %q",
			resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, body := get(t, c, srv.URL+"/admin/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "user-1234") || !strings.Contains(body, "group.Administrators") {
		t.Fatalf("admin page does not show identity:\n%s", body)
	}

	resp, _ = get(t, c, srv.URL+"/logout")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("logout: expected 302, got %d", resp.StatusCode)
	}

	resp, _ = get(t, c, srv.URL+"/private")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("after logout: expected redirect, got %d", resp.StatusCode)
	}
}

func TestDemoFlowMemory(t *testing.T) {
	runDemoFlow(t, newTestServer(t, nil))
}

func TestDemoFlowRedisAndSQLite(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Store.Backend = config.StoreRedis
		cfg.Directory.Backend = config.DirSQLite
		cfg.Directory.SQLiteDSN = "file:" + filepath.Join(t.TempDir(), "users.db")
		cfg.Throttle.Enabled = true
	})
	runDemoFlow(t, srv)
}

func TestDemoFlowBadger(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Store.Backend = config.StoreBadger
		cfg.Store.BadgerPath = filepath.Join(t.TempDir(), "badger")
	})
	runDemoFlow(t, srv)
}

func TestDemoBadPasswordAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newClient(t)

	resp := login(t, c, srv.URL, "nope")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bad password: expected form with 200, got %d", resp.StatusCode)
	}

	resp, body := get(t, c, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "formlogin_login_failure_total 1") {
		t.Fatalf("expected failure counter, got:\n%s", body)
	}
}

func TestStartupLogsSecurityReport(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}

	var buf strings.Builder
	a, err := newApp(context.Background(), cfg, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	a.Close()

	out := buf.String()
	if !strings.Contains(out, "gate security report") {
		t.Fatalf("expected security report in startup log:\n%s", out)
	}
	if !strings.Contains(out, `"lint":"throttle_disabled"`) {
		t.Fatalf("expected lint warnings in startup log:\n%s", out)
	}
}
