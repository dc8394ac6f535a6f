package goDesk

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by goDesk APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// BaseURL is the helpdesk API root every request path is resolved against.
	BaseURL string `yaml:"base_url" env:"GODESK_BASE_URL"`
	// Production marks persisted session entries Secure.
	Production bool `yaml:"production" env:"GODESK_PRODUCTION"`

	Navigation NavigationConfig `yaml:"navigation"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Session    SessionConfig    `yaml:"session"`
	Notify     NotifyConfig     `yaml:"notify"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Redis      RedisConfig      `yaml:"redis"`
}

/*
====================================
NAVIGATION CONFIG
====================================
*/

// NavigationConfig names the host routes the client sends users to.
type NavigationConfig struct {
	LoginRoute string `yaml:"login_route" env:"GODESK_LOGIN_ROUTE" env-default:"/login"`
	HomeRoute  string `yaml:"home_route"  env:"GODESK_HOME_ROUTE"  env-default:"/dashboard"`
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig defines a public type used by goDesk APIs.
//
// HTTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"    env:"GODESK_HTTP_TIMEOUT"    env-default:"30s"`
	UserAgent string        `yaml:"user_agent" env:"GODESK_HTTP_USER_AGENT" env-default:"goDesk"`
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig holds the backend authentication endpoints and refresh policy.
//
// Requests whose path contains LoginPath or RegisterPath never trigger a refresh and
// never produce a notification. ProactiveWindow > 0 renews the access token before a
// request when its exp claim is closer than the window.
type AuthConfig struct {
	LoginPath       string        `yaml:"login_path"       env:"GODESK_AUTH_LOGIN_PATH"       env-default:"/auth/login"`
	RegisterPath    string        `yaml:"register_path"    env:"GODESK_AUTH_REGISTER_PATH"    env-default:"/auth/register"`
	RefreshPath     string        `yaml:"refresh_path"     env:"GODESK_AUTH_REFRESH_PATH"     env-default:"/auth/refresh"`
	RevokePath      string        `yaml:"revoke_path"      env:"GODESK_AUTH_REVOKE_PATH"      env-default:"/auth/revoke"`
	ProactiveWindow time.Duration `yaml:"proactive_window" env:"GODESK_AUTH_PROACTIVE_WINDOW"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionBackend selects where the session is persisted.
type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendFile   SessionBackend = "file"
	SessionBackendRedis  SessionBackend = "redis"
)

// SessionConfig defines a public type used by goDesk APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	Backend      SessionBackend `yaml:"backend"       env:"GODESK_SESSION_BACKEND"       env-default:"memory"`
	FilePath     string         `yaml:"file_path"     env:"GODESK_SESSION_FILE_PATH"`
	RedisPrefix  string         `yaml:"redis_prefix"  env:"GODESK_SESSION_REDIS_PREFIX"  env-default:"gd"`
	CookieTTL    time.Duration  `yaml:"cookie_ttl"    env:"GODESK_SESSION_COOKIE_TTL"    env-default:"168h"`
	CookiePath   string         `yaml:"cookie_path"   env:"GODESK_SESSION_COOKIE_PATH"   env-default:"/"`
	CookieDomain string         `yaml:"cookie_domain" env:"GODESK_SESSION_COOKIE_DOMAIN"`
	SameSite     http.SameSite  `yaml:"-"             env:"-"`
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig controls delivery of user notifications. With Async set, notifications
// are handed to a buffered dispatcher goroutine instead of the request goroutine.
type NotifyConfig struct {
	Async      bool `yaml:"async"       env:"GODESK_NOTIFY_ASYNC"`
	BufferSize int  `yaml:"buffer_size" env:"GODESK_NOTIFY_BUFFER_SIZE" env-default:"64"`
	DropIfFull bool `yaml:"drop_if_full" env:"GODESK_NOTIFY_DROP_IF_FULL"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goDesk APIs.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"                   env:"GODESK_METRICS_ENABLED"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"GODESK_METRICS_LATENCY"`
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig is used when Session.Backend is "redis" and no client was supplied to the
// Builder.
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"GODESK_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"GODESK_REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"GODESK_REDIS_DB"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Navigation: NavigationConfig{
			LoginRoute: "/login",
			HomeRoute:  "/dashboard",
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "goDesk",
		},
		Auth: AuthConfig{
			LoginPath:    "/auth/login",
			RegisterPath: "/auth/register",
			RefreshPath:  "/auth/refresh",
			RevokePath:   "/auth/revoke",
		},
		Session: SessionConfig{
			Backend:     SessionBackendMemory,
			RedisPrefix: "gd",
			CookieTTL:   7 * 24 * time.Hour,
			CookiePath:  "/",
			SameSite:    http.SameSiteLaxMode,
		},
		Notify: NotifyConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if out.Session.SameSite == 0 {
		out.Session.SameSite = http.SameSiteLaxMode
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when a field is missing or inconsistent.
// Validate does not mutate the receiver.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("BaseURL scheme must be http or https")
	}

	if !strings.HasPrefix(c.Navigation.LoginRoute, "/") {
		return errors.New("Navigation LoginRoute must start with /")
	}
	if !strings.HasPrefix(c.Navigation.HomeRoute, "/") {
		return errors.New("Navigation HomeRoute must start with /")
	}

	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}

	for name, p := range map[string]string{
		"LoginPath":    c.Auth.LoginPath,
		"RegisterPath": c.Auth.RegisterPath,
		"RefreshPath":  c.Auth.RefreshPath,
		"RevokePath":   c.Auth.RevokePath,
	} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Auth " + name + " must start with /")
		}
	}
	if c.Auth.ProactiveWindow < 0 {
		return errors.New("Auth ProactiveWindow must be >= 0")
	}

	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	case SessionBackendFile:
		if c.Session.FilePath == "" {
			return errors.New("Session FilePath is required for the file backend")
		}
	default:
		return errors.New("Session Backend must be 'memory', 'file' or 'redis'")
	}
	if c.Session.CookieTTL <= 0 {
		return errors.New("Session CookieTTL must be > 0")
	}
	if !strings.HasPrefix(c.Session.CookiePath, "/") {
		return errors.New("Session CookiePath must start with /")
	}

	if c.Notify.Async && c.Notify.BufferSize <= 0 {
		return errors.New("Notify BufferSize must be > 0 when Async is true")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
