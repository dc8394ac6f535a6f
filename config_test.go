package goDesk

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.BaseURL = "http://localhost:3000/api"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with base url",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name:      "missing base url",
			mutate:    func(c *Config) { c.BaseURL = "" },
			wantValid: false,
		},
		{
			name:      "relative base url",
			mutate:    func(c *Config) { c.BaseURL = "/api" },
			wantValid: false,
		},
		{
			name:      "unsupported scheme",
			mutate:    func(c *Config) { c.BaseURL = "ftp://desk.example.com" },
			wantValid: false,
		},
		{
			name:      "login route without slash",
			mutate:    func(c *Config) { c.Navigation.LoginRoute = "login" },
			wantValid: false,
		},
		{
			name:      "negative timeout",
			mutate:    func(c *Config) { c.HTTP.Timeout = -time.Second },
			wantValid: false,
		},
		{
			name:      "refresh path without slash",
			mutate:    func(c *Config) { c.Auth.RefreshPath = "auth/refresh" },
			wantValid: false,
		},
		{
			name:      "proactive window negative",
			mutate:    func(c *Config) { c.Auth.ProactiveWindow = -time.Minute },
			wantValid: false,
		},
		{
			name:      "proactive window positive",
			mutate:    func(c *Config) { c.Auth.ProactiveWindow = 30 * time.Second },
			wantValid: true,
		},
		{
			name:      "file backend without path",
			mutate:    func(c *Config) { c.Session.Backend = SessionBackendFile },
			wantValid: false,
		},
		{
			name: "file backend with path",
			mutate: func(c *Config) {
				c.Session.Backend = SessionBackendFile
				c.Session.FilePath = "session.json"
			},
			wantValid: true,
		},
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Session.Backend = "sqlite" },
			wantValid: false,
		},
		{
			name:      "zero session ttl",
			mutate:    func(c *Config) { c.Session.CookieTTL = 0 },
			wantValid: false,
		},
		{
			name: "async notify without buffer",
			mutate: func(c *Config) {
				c.Notify.Async = true
				c.Notify.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name:      "histograms without metrics",
			mutate:    func(c *Config) { c.Metrics.EnableLatencyHistograms = true },
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desk.yaml")
	body := `
base_url: https://desk.example.com/api
navigation:
  login_route: /signin
auth:
  proactive_window: 45s
session:
  backend: file
  file_path: ` + filepath.Join(dir, "session.json") + `
metrics:
  enabled: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "https://desk.example.com/api" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Navigation.LoginRoute != "/signin" {
		t.Fatalf("unexpected login route %q", cfg.Navigation.LoginRoute)
	}
	if cfg.Navigation.HomeRoute != "/dashboard" {
		t.Fatalf("expected default home route, got %q", cfg.Navigation.HomeRoute)
	}
	if cfg.Auth.ProactiveWindow != 45*time.Second {
		t.Fatalf("unexpected proactive window %s", cfg.Auth.ProactiveWindow)
	}
	if cfg.Session.Backend != SessionBackendFile {
		t.Fatalf("unexpected backend %q", cfg.Session.Backend)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled")
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desk.yaml")
	if err := os.WriteFile(path, []byte("base_url: https://desk.example.com\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("GODESK_BASE_URL", "http://localhost:3000/api")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "http://localhost:3000/api" {
		t.Fatalf("expected env override, got %q", cfg.BaseURL)
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("GODESK_BASE_URL", "http://localhost:3000/api")
	t.Setenv("GODESK_LOGIN_ROUTE", "/auth")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Navigation.LoginRoute != "/auth" {
		t.Fatalf("unexpected login route %q", cfg.Navigation.LoginRoute)
	}
	if cfg.Session.CookieTTL != 7*24*time.Hour {
		t.Fatalf("expected default ttl, got %s", cfg.Session.CookieTTL)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("GODESK_BASE_URL", "")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected validation error without base url")
	}
}
