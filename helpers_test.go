package formlogin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errBackend = errors.New("backend down")

// plainPasswords compares plaintext passwords; good enough for gate tests.
type plainPasswords struct {
	users map[string]string
	err   error
}

func (p *plainPasswords) CheckPassword(_ context.Context, login, password string) (bool, error) {
	if p.err != nil {
		return false, p.err
	}
	want, ok := p.users[login]
	return ok && want == password, nil
}

type staticPrincipals struct {
	users map[string][]string
	err   error
}

func (p *staticPrincipals) UserID(_ context.Context, login string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	principals, ok := p.users[login]
	if !ok {
		return "", fmt.Errorf("unknown login %q", login)
	}
	return principals[0], nil
}

func (p *staticPrincipals) Principals(_ context.Context, login string) ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	principals, ok := p.users[login]
	if !ok {
		return nil, fmt.Errorf("unknown login %q", login)
	}
	return append([]string(nil), principals...), nil
}

type mapCredentials struct {
	mu     sync.Mutex
	tokens map[string]string

	loginErr  error
	logoutErr error
	lookupErr error
}

func newMapCredentials() *mapCredentials {
	return &mapCredentials{tokens: map[string]string{}}
}

func (c *mapCredentials) Login(_ context.Context, login string) (string, error) {
	if c.loginErr != nil {
		return "", c.loginErr
	}
	token := uuid.NewString()
	c.mu.Lock()
	c.tokens[token] = login
	c.mu.Unlock()
	return token, nil
}

func (c *mapCredentials) Logout(_ context.Context, token string) error {
	if c.logoutErr != nil {
		return c.logoutErr
	}
	c.mu.Lock()
	delete(c.tokens, token)
	c.mu.Unlock()
	return nil
}

func (c *mapCredentials) LoginFor(_ context.Context, token string) (string, bool, error) {
	if c.lookupErr != nil {
		return "", false, c.lookupErr
	}
	c.mu.Lock()
	login, ok := c.tokens[token]
	c.mu.Unlock()
	return login, ok, nil
}

func (c *mapCredentials) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

type testBrokers struct {
	passwords   *plainPasswords
	principals  *staticPrincipals
	credentials *mapCredentials
}

func newTestBrokers() *testBrokers {
	return &testBrokers{
		passwords: &plainPasswords{users: map[string]string{
			"chris@example.com": "12345678",
			"dana@example.com":  "hunter22",
		}},
		principals: &staticPrincipals{users: map[string][]string{
			"chris@example.com": {"user-1234", "group.Administrators"},
			"dana@example.com":  {"user-5678"},
		}},
		credentials: newMapCredentials(),
	}
}

func (tb *testBrokers) builder() *Builder {
	return New().
		WithPasswordBroker(tb.passwords).
		WithPrincipalsBroker(tb.principals).
		WithCredentialBroker(tb.credentials)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func buildGate(t *testing.T, b *Builder) *Gate {
	t.Helper()
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

// testApp is the wrapped application used by gate tests.
func testApp() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "hello %s", RemoteUser(r))
	})
	mux.HandleFunc("/principals", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Join(Principals(r), ","))
	})
	mux.HandleFunc("/401", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Upstream", "401")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "upstream says no")
	})
	mux.HandleFunc("/403", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Upstream", "403")
		http.Error(w, "upstream forbids", http.StatusForbidden)
	})
	return mux
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func loginRequest(login, password, redirectTo string) *http.Request {
	form := url.Values{"login": {login}, "password": {password}}
	if redirectTo != "" {
		form.Set("redirect_to", redirectTo)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// loginAs performs a successful login and returns the issued cookie.
func loginAs(t *testing.T, h http.Handler, login, password string) *http.Cookie {
	t.Helper()
	rr := serve(h, loginRequest(login, password, ""))
	if rr.Code != http.StatusFound {
		t.Fatalf("login %s: expected 302, got %d: %s", login, rr.Code, rr.Body.String())
	}
	c := sessionCookie(t, rr, "happy.login")
	if c == nil || c.Value == "" {
		t.Fatalf("login %s: expected session cookie", login)
	}
	return c
}

func getWith(h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return serve(h, req)
}
