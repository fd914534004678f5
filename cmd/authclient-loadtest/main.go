package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type client struct {
	jar    http.CookieJar
	engine *goAuthClient.Engine
}

func main() {
	_ = godotenv.Load()

	var (
		sessions    = flag.Int("sessions", 500, "number of browser sessions to seed")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 5000, "function calls in the call phase")
		redisAddr   = flag.String("redis-addr", "", "redis address for the snapshot cache; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "acs", "snapshot cache key prefix")
		expiresIn   = flag.Duration("expires-in", 15*time.Minute, "access-token lifetime reported by the test backend")
		verbose     = flag.Bool("v", false, "log engine events")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	srv := authtest.New(authtest.WithExpiresIn(*expiresIn))
	defer srv.Close()
	fmt.Printf("test backend at %s\n", srv.URL)

	cfg := goAuthClient.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Cache.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	build := func(jar http.CookieJar) (*goAuthClient.Engine, error) {
		return goAuthClient.New().
			WithConfig(cfg).
			WithCookieJar(jar).
			WithRedis(rdb).
			WithLogger(logger).
			Build()
	}

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	clients := make([]client, *sessions)
	for i := range clients {
		jar, err := cookiejar.New(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cookie jar: %v\n", err)
			os.Exit(1)
		}
		srv.SeedSession(jar, fmt.Sprintf("user-%d@example.com", i))
		engine, err := build(jar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
			os.Exit(1)
		}
		clients[i] = client{jar: jar, engine: engine}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	ctx := context.Background()
	initStats := runPhase(len(clients), *concurrency, func(i int) error {
		return initErr(clients[i].engine.Init(ctx))
	})

	// A second engine per jar models a page reload: the snapshot cache should
	// answer without a refresh.
	reloaded := make([]*goAuthClient.Engine, len(clients))
	for i, c := range clients {
		engine, err := build(c.jar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
			os.Exit(1)
		}
		reloaded[i] = engine
	}
	refreshesBefore := srv.Counts().Refresh
	reloadStats := runPhase(len(reloaded), *concurrency, func(i int) error {
		return initErr(reloaded[i].Init(ctx))
	})
	reloadRefreshes := srv.Counts().Refresh - refreshesBefore

	callStats := runPhase(*ops, *concurrency, func(i int) error {
		_, err := clients[i%len(clients)].engine.ExecuteFunction(ctx, "echo", map[string]int{"n": i})
		return err
	})

	fmt.Println("---- results ----")
	printStats("init", initStats)
	printStats("reload", reloadStats)
	printStats("call", callStats)
	fmt.Printf("refreshes during reload: %d\n", reloadRefreshes)

	var hits, misses uint64
	for _, e := range reloaded {
		snap := e.MetricsSnapshot()
		hits += snap.Counters[goAuthClient.MetricCacheHit]
		misses += snap.Counters[goAuthClient.MetricCacheMiss]
	}
	fmt.Printf("snapshot cache: hits=%d misses=%d\n", hits, misses)

	for _, c := range clients {
		c.engine.Logout(ctx)
		c.engine.Close()
	}
	for _, e := range reloaded {
		e.Close()
	}
}

func initErr(res goAuthClient.InitResult) error {
	if res.Err != nil {
		return res.Err
	}
	if !res.Authenticated {
		return fmt.Errorf("session not restored: %s", res.Reason)
	}
	return nil
}

func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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
	return samples[(len(samples)-1)*p/100]
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
