// Command formlogin-loadtest measures credential store throughput: token resolution
// and login/logout churn under concurrent load.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	formlogin "github.com/MrEthical07/formlogin"
	"github.com/MrEthical07/formlogin/session"
)

func main() {
	var (
		logins      = flag.Int("logins", 100000, "number of credential tokens to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (resolve + churn)")
		backend     = flag.String("store", "redis", "credential store: redis, memory or badger")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		badgerPath  = flag.String("badger-path", "", "badger directory; empty runs in memory")
		ttl         = flag.Duration("ttl", 0, "token lifetime; 0 keeps tokens until logout")
	)
	flag.Parse()

	if *logins <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "logins, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	store, cleanup, err := openStore(*backend, *redisAddr, *badgerPath, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	tokens := make([]string, *logins)
	fmt.Printf("seeding %d tokens...\n", *logins)
	startSeed := time.Now()
	for i := range tokens {
		token, err := store.Login(ctx, fmt.Sprintf("user-%d@example.com", i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, ok, err := store.LoginFor(ctx, tokens[r.Intn(len(tokens))])
		if err == nil && !ok {
			return errMissing
		}
		return err
	})
	churnStats := runPhase(*ops, *concurrency, 6151, func(_ *rand.Rand, i int) error {
		token, err := store.Login(ctx, fmt.Sprintf("churn-%d@example.com", i))
		if err != nil {
			return err
		}
		return store.Logout(ctx, token)
	})

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("churn", churnStats)
}

var errMissing = errors.New("seeded token not found")

func openStore(backend, redisAddr, badgerPath string, ttl time.Duration) (formlogin.CredentialBroker, func(), error) {
	opts := []session.Option{session.WithTTL(ttl)}

	switch backend {
	case "memory":
		fmt.Println("using memory store")
		return session.NewMemoryStore(opts...), func() {}, nil

	case "badger":
		db, err := session.OpenBadger(badgerPath)
		if err != nil {
			return nil, nil, err
		}
		fmt.Println("using badger store")
		return session.NewBadgerStore(db, opts...), func() { _ = db.Close() }, nil

	case "redis":
		addr := redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr != "" {
			client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
			fmt.Printf("using redis at %s\n", addr)
			return session.NewRedisStore(client, opts...), func() { _ = client.Close() }, nil
		}

		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return session.NewRedisStore(client, opts...), func() {
			_ = client.Close()
			mr.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", backend)
	}
}

// runPhase executes op ops times across concurrency workers and records each latency.
func runPhase(ops, concurrency int, seed int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
