package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("secret-secret-secret-secret-0001"),
		Issuer:        "godesk-test",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{AccessTTL: 0, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PrivateKey: []byte("short")},
		{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestCreateAndParseRoundTrip(t *testing.T) {
	m := newHSManager(t)

	access, err := m.CreateAccess("ada@example.com")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	claims, err := m.Parse(access, KindAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.Subject != "ada@example.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}

	refresh, err := m.CreateRefresh("ada@example.com")
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if refresh == access {
		t.Fatal("refresh and access tokens must differ")
	}
	if _, err := m.Parse(refresh, KindAccess); err == nil {
		t.Fatal("refresh token must not parse as access")
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	m := newHSManager(t)

	expired, err := m.CreateWithTTL("ada@example.com", KindAccess, -time.Minute)
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, err := m.Parse(expired, KindAccess); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	foreign := gjwt.NewWithClaims(gjwt.SigningMethodHS256, Claims{
		Kind: KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    "godesk-test",
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	token, err := foreign.SignedString([]byte("another-secret-another-secret-00"))
	if err != nil {
		t.Fatalf("sign foreign: %v", err)
	}
	if _, err := m.Parse(token, KindAccess); err == nil {
		t.Fatal("expected foreign signature to be rejected")
	}
}

func TestEd25519Manager(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	tok, err := m.CreateAccess("ada@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.Parse(tok, KindAccess); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestClockOverride(t *testing.T) {
	m := newHSManager(t)
	base := time.Now().Add(-time.Hour)
	m.SetClock(func() time.Time { return base })

	tok, err := m.CreateAccess("ada@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	exp, err := ExpiresAt(tok)
	if err != nil {
		t.Fatalf("expires at: %v", err)
	}
	if !exp.Equal(base.Add(time.Minute).Truncate(time.Second)) {
		t.Fatalf("unexpected exp %v", exp)
	}
	// Still valid under the overridden clock.
	if _, err := m.Parse(tok, KindAccess); err != nil {
		t.Fatalf("parse under fixed clock: %v", err)
	}
}
