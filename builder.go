package goDesk

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goDesk/internal/flows"
	"github.com/MrEthical07/goDesk/refresh"
	"github.com/MrEthical07/goDesk/session"
)

// Builder defines a public type used by goDesk APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	storage    session.Storage
	redis      redis.UniversalClient
	notifier   Notifier
	redirector Redirector
	logger     *slog.Logger
	httpClient *http.Client

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Config.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithStorage supplies the session persistence backend. It takes precedence over
// Config.Session.Backend.
func (b *Builder) WithStorage(storage session.Storage) *Builder {
	b.storage = storage
	return b
}

// WithRedis supplies the client used by the "redis" session backend. A client supplied
// here is not closed by [Client.Close].
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets where user-facing notifications are delivered.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithRedirector sets how the host is sent to the login route when the session ends.
func (b *Builder) WithRedirector(r Redirector) *Builder {
	b.redirector = r
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// A nil logger discards client diagnostics.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithHTTPClient replaces the underlying transport client. Config.HTTP.Timeout is not
// applied to a client supplied here.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles a [Client].
//
// Build performs no I/O: the session is not read from storage until
// [Client.Initialize]. A Builder can be built once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- SESSION STORE --------
	storage := b.storage
	var ownedRedis redis.UniversalClient
	if storage == nil {
		switch cfg.Session.Backend {
		case SessionBackendFile:
			storage = session.NewFileStorage(cfg.Session.FilePath)
		case SessionBackendRedis:
			rdb := b.redis
			if rdb == nil {
				rdb = redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				ownedRedis = rdb
			}
			storage = session.NewRedisStorage(rdb, cfg.Session.RedisPrefix)
		default:
			storage = session.NewMemoryStorage()
		}
	}

	store := session.NewStore(storage, session.CookieConfig{
		Path:     cfg.Session.CookiePath,
		Domain:   cfg.Session.CookieDomain,
		TTL:      cfg.Session.CookieTTL,
		Secure:   cfg.Production,
		SameSite: cfg.Session.SameSite,
	}, logger)

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTP.Timeout}
	}

	redirector := b.redirector
	if redirector == nil {
		redirector = logRedirector{logger: logger}
	}

	c := &Client{
		config:      cfg,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        httpClient,
		store:       store,
		coordinator: refresh.NewCoordinator(store.AccessToken),
		notifier:    newNotifyDispatcher(cfg.Notify, b.notifier),
		redirector:  redirector,
		logger:      logger,
		metrics:     NewMetrics(cfg.Metrics),
		ownedRedis:  ownedRedis,
		now:         time.Now,
	}

	// -------- FLOWS --------
	warn := func(msg string, args ...any) { logger.Warn(msg, args...) }
	c.flows = flows.Deps{
		Refresh: flows.RefreshDeps{
			Exchange:     c.exchangeRefresh,
			SessionStore: store,
			Redirect:     c.redirectToLogin,
			Warn:         warn,
		},
		Logout: flows.LogoutDeps{
			Revoke:       c.revoke,
			SessionStore: store,
			Warn:         warn,
		},
	}

	b.built = true

	return c, nil
}
