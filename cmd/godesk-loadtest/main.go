package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	goDesk "github.com/MrEthical07/goDesk"
	"github.com/MrEthical07/goDesk/internal/deskfake"
)

type options struct {
	rounds       int
	concurrency  int
	refreshDelay time.Duration
	failEvery    int
	backend      string
	redisAddr    string
	verbose      bool
}

func main() {
	flags := pflag.NewFlagSet("godesk-loadtest", pflag.ContinueOnError)
	var opts options
	flags.IntVar(&opts.rounds, "rounds", 50, "number of expiry rounds")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 64, "concurrent requests per round")
	flags.DurationVar(&opts.refreshDelay, "refresh-delay", 20*time.Millisecond, "artificial latency of the refresh endpoint")
	flags.IntVar(&opts.failEvery, "fail-every", 0, "reject the refresh call every Nth round (0 disables)")
	flags.StringVar(&opts.backend, "backend", "memory", "session backend: memory or redis")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log client diagnostics to stderr")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.rounds <= 0 || opts.concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "rounds and concurrency must be > 0")
		os.Exit(2)
	}

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	desk, err := deskfake.New(deskfake.Options{})
	if err != nil {
		return err
	}
	desk.SetRefreshDelay(opts.refreshDelay)
	srv := httptest.NewServer(desk)
	defer srv.Close()

	logger := slog.New(slog.DiscardHandler)
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	cfg := goDesk.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	builder := goDesk.New().WithLogger(logger)

	if opts.backend == "redis" {
		rdb, cleanup, err := redisClient(opts.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()
		cfg.Session.Backend = goDesk.SessionBackendRedis
		builder.WithRedis(rdb)
	}

	client, err := builder.WithConfig(cfg).Build()
	if err != nil {
		return err
	}
	defer client.Close()

	var (
		latencies []time.Duration
		failures  int
		mu        sync.Mutex
	)

	start := time.Now()
	for round := 1; round <= opts.rounds; round++ {
		if !client.IsAuthenticated() {
			if _, err := client.Login(ctx, goDesk.LoginRequest{Email: "ada@example.com", Password: "secret"}); err != nil {
				return fmt.Errorf("login: %w", err)
			}
		}
		if err := expire(ctx, client, desk); err != nil {
			return err
		}

		failing := opts.failEvery > 0 && round%opts.failEvery == 0
		if failing {
			desk.FailRefresh(401)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < opts.concurrency; i++ {
			g.Go(func() error {
				t0 := time.Now()
				_, err := client.Get(gctx, "/tickets")
				d := time.Since(t0)

				mu.Lock()
				defer mu.Unlock()
				latencies = append(latencies, d)
				if err != nil {
					failures++
					if !failing {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		desk.FailRefresh(0)
	}
	total := time.Since(start)

	report(opts, total, latencies, failures, desk.RefreshCalls(), client)
	return nil
}

// expire replaces the access token with an expired one so the next request gets a 401.
func expire(ctx context.Context, client *goDesk.Client, desk *deskfake.Server) error {
	tok, err := desk.IssueAccess("ada@example.com", -time.Minute)
	if err != nil {
		return err
	}
	snap := client.Session().Snapshot()
	client.Session().SetAuth(ctx, tok, snap.RefreshToken, snap.Identity)
	return nil
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func report(opts options, total time.Duration, samples []time.Duration, failures int, refreshCalls int64, client *goDesk.Client) {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	m := client.Metrics()

	fmt.Println("---- results ----")
	fmt.Printf("rounds=%d concurrency=%d requests=%d failures=%d total=%s\n",
		opts.rounds, opts.concurrency, len(samples), failures, total.Round(time.Millisecond))
	fmt.Printf("refresh calls=%d (%.2f per round) queued=%d shortcut=%d retries=%d\n",
		refreshCalls,
		float64(refreshCalls)/float64(opts.rounds),
		m.Value(goDesk.MetricRefreshQueued),
		m.Value(goDesk.MetricRefreshShortcut),
		m.Value(goDesk.MetricRetry),
	)
	fmt.Printf("latency p50=%s p95=%s p99=%s\n",
		percentile(samples, 50).Round(time.Microsecond),
		percentile(samples, 95).Round(time.Microsecond),
		percentile(samples, 99).Round(time.Microsecond),
	)
	fmt.Printf("request latency buckets=%v\n", client.MetricsSnapshot().Histograms[goDesk.MetricRequestLatency])
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
