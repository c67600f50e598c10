package main

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v, want 5", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v, want 10", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty percentile = %v, want 0", got)
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	var calls int64
	stats := runPhase(100, 4, 1, func(_ *rand.Rand, i int) error {
		atomic.AddInt64(&calls, 1)
		if i%10 == 0 {
			return errors.New("boom")
		}
		return nil
	})
	if calls != 100 || stats.ops != 100 {
		t.Fatalf("expected 100 ops, got calls=%d ops=%d", calls, stats.ops)
	}
	if stats.failures != 10 {
		t.Fatalf("expected 10 failures, got %d", stats.failures)
	}
}

func TestOpenStoreBackends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{"memory", "badger", "redis"} {
		t.Run(backend, func(t *testing.T) {
			t.Setenv("REDIS_ADDR", "")
			store, cleanup, err := openStore(backend, "", "", 0)
			if err != nil {
				t.Fatalf("openStore(%s) failed: %v", backend, err)
			}
			defer cleanup()

			token, err := store.Login(ctx, "chris@example.com")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			login, ok, err := store.LoginFor(ctx, token)
			if err != nil || !ok || login != "chris@example.com" {
				t.Fatalf("LoginFor = %q %v %v", login, ok, err)
			}
		})
	}

	if _, _, err := openStore("etcd", "", "", 0); err == nil {
		t.Fatal("expected error for unknown store")
	}
}
