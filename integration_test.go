//go:build integration
// +build integration

package goDesk_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goDesk "github.com/MrEthical07/goDesk"
	"github.com/MrEthical07/goDesk/internal/deskfake"
)

func TestRefreshRaceSingleExchange(t *testing.T) {
	ctx := context.Background()
	env := newIntegrationEnv(t)
	env.desk.SetRefreshDelay(30 * time.Millisecond)

	client := env.newClient(t)
	if _, err := client.Login(ctx, goDesk.LoginRequest{Email: "ada@example.com", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	expired, err := env.desk.IssueAccess("ada@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	snap := client.Session().Snapshot()
	client.Session().SetAuth(ctx, expired, snap.RefreshToken, snap.Identity)

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := client.Get(ctx, "/tickets")
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("unexpected request error: %v", err)
		}
	}

	if got := env.desk.RefreshCalls(); got != 1 {
		t.Fatalf("expected exactly one refresh exchange, got %d", got)
	}

	stored, err := env.rdb.Get(ctx, "gd:/:access_token").Result()
	if err != nil {
		t.Fatalf("redis get: %v", err)
	}
	if stored == expired || stored != client.Session().AccessToken() {
		t.Fatal("expected the renewed token to be persisted")
	}
}

func TestSharedRedisSessionAcrossClients(t *testing.T) {
	ctx := context.Background()
	env := newIntegrationEnv(t)

	first := env.newClient(t)
	if _, err := first.Login(ctx, goDesk.LoginRequest{Email: "ada@example.com", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	second := env.newClient(t)
	if err := second.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !second.IsAuthenticated() {
		t.Fatal("expected second client to pick up the stored session")
	}
	if got := second.Session().FullName(); got != "Ada Lovelace" {
		t.Fatalf("unexpected identity: %q", got)
	}

	if err := first.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if env.mr.Exists("gd:/:access_token") {
		t.Fatal("expected logout to remove the stored token")
	}
}

type integrationEnv struct {
	desk    *deskfake.Server
	baseURL string
	mr      *miniredis.Miniredis
	rdb     *redis.Client
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	desk, err := deskfake.New(deskfake.Options{})
	if err != nil {
		t.Fatalf("deskfake: %v", err)
	}
	srv := httptest.NewServer(desk)

	t.Cleanup(func() {
		srv.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &integrationEnv{desk: desk, baseURL: srv.URL, mr: mr, rdb: rdb}
}

// newClient builds a client persisting its session in the shared miniredis instance.
func (e *integrationEnv) newClient(t *testing.T) *goDesk.Client {
	t.Helper()

	cfg := goDesk.DefaultConfig()
	cfg.BaseURL = e.baseURL
	cfg.Session.Backend = goDesk.SessionBackendRedis
	cfg.Metrics.Enabled = true

	client, err := goDesk.New().WithConfig(cfg).WithRedis(e.rdb).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
