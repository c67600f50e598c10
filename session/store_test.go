package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type credentialStore interface {
	Login(ctx context.Context, login string) (string, error)
	Logout(ctx context.Context, token string) error
	LoginFor(ctx context.Context, token string) (string, bool, error)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()

	db, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db)
}

func allStores(t *testing.T) map[string]credentialStore {
	t.Helper()

	_, client := newTestRedis(t)
	return map[string]credentialStore{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client),
		"badger": newTestBadger(t),
	}
}

func TestStoresLoginResolveLogout(t *testing.T) {
	for name, store := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			token, err := store.Login(ctx, "chris@example.com")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			if token == "" {
				t.Fatal("expected non-empty token")
			}

			login, ok, err := store.LoginFor(ctx, token)
			if err != nil || !ok {
				t.Fatalf("expected token to resolve, ok=%v err=%v", ok, err)
			}
			if login != "chris@example.com" {
				t.Fatalf("expected chris@example.com, got %q", login)
			}

			if err := store.Logout(ctx, token); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
			if _, ok, err := store.LoginFor(ctx, token); err != nil || ok {
				t.Fatalf("expected revoked token to be unknown, ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoresTokensAreUnique(t *testing.T) {
	for name, store := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, err := store.Login(ctx, "same")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			b, err := store.Login(ctx, "same")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			if a == b {
				t.Fatal("expected distinct tokens for two logins")
			}

			if err := store.Logout(ctx, a); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
			if _, ok, _ := store.LoginFor(ctx, b); !ok {
				t.Fatal("revoking one token must not affect another")
			}
		})
	}
}

func TestStoresUnknownTokenAndIdempotentLogout(t *testing.T) {
	for name, store := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := store.LoginFor(ctx, "no-such-token"); err != nil || ok {
				t.Fatalf("expected unknown token, ok=%v err=%v", ok, err)
			}
			if _, ok, err := store.LoginFor(ctx, ""); err != nil || ok {
				t.Fatalf("expected empty token to be unknown, ok=%v err=%v", ok, err)
			}
			if err := store.Logout(ctx, "no-such-token"); err != nil {
				t.Fatalf("Logout of unknown token must be a no-op, got %v", err)
			}
		})
	}
}

func TestStoresConcurrentReadYourWrites(t *testing.T) {
	for name, store := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			const workers = 16
			const perWorker = 20

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			wg.Add(workers)
			for w := 0; w < workers; w++ {
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						login := fmt.Sprintf("user-%d-%d", w, i)
						token, err := store.Login(ctx, login)
						if err != nil {
							errs <- err
							return
						}
						got, ok, err := store.LoginFor(ctx, token)
						if err != nil || !ok || got != login {
							errs <- fmt.Errorf("read-your-writes violated for %s: got=%q ok=%v err=%v", login, got, ok, err)
							return
						}
						if err := store.Logout(ctx, token); err != nil {
							errs <- err
							return
						}
						if _, ok, _ := store.LoginFor(ctx, token); ok {
							errs <- fmt.Errorf("token for %s resolved after logout", login)
							return
						}
					}
				}(w)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				t.Fatal(err)
			}
		})
	}
}

func TestRedisStoreTTLAndPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, WithTTL(time.Minute), WithPrefix("test:"))
	ctx := context.Background()

	token, err := store.Login(ctx, "chris")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !mr.Exists("test:" + token) {
		t.Fatalf("expected key test:%s in redis", token)
	}
	if ttl := mr.TTL("test:" + token); ttl != time.Minute {
		t.Fatalf("expected 1m TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, err := store.LoginFor(ctx, token); err != nil || ok {
		t.Fatalf("expected expired token to be unknown, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreWithoutTTLNeverExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)

	token, err := store.Login(context.Background(), "chris")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if ttl := mr.TTL("hl:" + token); ttl != 0 {
		t.Fatalf("expected no TTL, got %v", ttl)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client)
	mr.Close()

	if _, err := store.Login(context.Background(), "chris"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from Login, got %v", err)
	}
	if _, _, err := store.LoginFor(context.Background(), "tok"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from LoginFor, got %v", err)
	}
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from Ping, got %v", err)
	}
}
