package goDesk_test

import (
	"net/http"
	"testing"
	"time"

	goDesk "github.com/MrEthical07/goDesk"
)

func TestDefaultConfigPresetValidates(t *testing.T) {
	cfg := goDesk.DefaultConfig()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without BaseURL to be rejected")
	}

	cfg.BaseURL = "http://localhost:3000/api"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected preset to validate, got %v", err)
	}
	if cfg.Navigation.LoginRoute != "/login" || cfg.Navigation.HomeRoute != "/dashboard" {
		t.Fatalf("unexpected routes: %+v", cfg.Navigation)
	}
	if cfg.Auth.RefreshPath != "/auth/refresh" {
		t.Fatalf("unexpected refresh path %q", cfg.Auth.RefreshPath)
	}
	if cfg.Session.Backend != goDesk.SessionBackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Session.Backend)
	}
	if cfg.Session.CookieTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day session lifetime, got %s", cfg.Session.CookieTTL)
	}
	if cfg.Session.SameSite != http.SameSiteLaxMode {
		t.Fatal("expected SameSite=Lax")
	}
	if cfg.Auth.ProactiveWindow != 0 {
		t.Fatal("expected proactive refresh disabled by default")
	}
}

func TestFileBackendPresetRequiresPath(t *testing.T) {
	cfg := goDesk.DefaultConfig()
	cfg.BaseURL = "https://desk.example.com"
	cfg.Session.Backend = goDesk.SessionBackendFile

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing file path to be rejected")
	}

	cfg.Session.FilePath = t.TempDir() + "/session.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected file preset to validate, got %v", err)
	}
}
