package porkbundns01

import (
	"context"
	"testing"
	"time"

	"github.com/go-acme/lego/v4/challenge/dns01"
	logrtesting "github.com/go-logr/logr/testing"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/challenge"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun/porkbuntest"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/resolve"
)

type undelegated struct{}

func (undelegated) CanonicalName(context.Context, string) (string, error) {
	return "", resolve.ErrNXDomain
}

func testConfig(t *testing.T, fake *porkbuntest.Server) Config {
	return Config{
		APIKey:       "key",
		SecretAPIKey: "secret",
		Endpoint:     fake.Endpoint(),
		Logger:       logrtesting.NewTestLogger(t),
	}
}

func newTestLegoProvider(t *testing.T, fake *porkbuntest.Server) *LegoProvider {
	t.Helper()
	cfg := testConfig(t, fake)
	client, err := cfg.client()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return newLegoProvider(&challenge.Authenticator{
		Resolver:           resolve.NewResolver(cfg.Logger, undelegated{}),
		Reconciler:         &challenge.Reconciler{DNS: client, Log: cfg.Logger},
		Store:              challenge.NewMemoryStore(),
		PropagationSeconds: challenge.DefaultPropagationSeconds,
		MinTTL:             porkbun.MinTTL,
		Log:                cfg.Logger,
	}, 0)
}

func TestLegoProvider(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	p := newTestLegoProvider(t, fake)

	const keyAuth = "token.thumbprint"
	want := dns01.GetChallengeInfo("app.example.com", keyAuth).Value

	if err := p.Present("app.example.com", "token", keyAuth); err != nil {
		t.Fatalf("Present: %v", err)
	}
	recs := fake.Records("example.com")
	if len(recs) != 1 || recs[0].Name != "_acme-challenge.app.example.com" || recs[0].Content != want {
		t.Fatalf("expected one TXT record with %q, got %+v", want, recs)
	}

	if err := p.CleanUp("app.example.com", "token", keyAuth); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if n := len(fake.Records("example.com")); n != 0 {
		t.Errorf("expected the record to be removed, got %d", n)
	}

	timeout, interval := p.Timeout()
	if timeout != 600*time.Second || interval != 10*time.Second {
		t.Errorf("unexpected timeout/interval %v/%v", timeout, interval)
	}
}

func TestLegoProviderKeepsExistingRecord(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	const keyAuth = "token.thumbprint"
	fake.AddRecord("example.com", "_acme-challenge", "TXT", dns01.GetChallengeInfo("example.com", keyAuth).Value)
	p := newTestLegoProvider(t, fake)

	if err := p.Present("example.com", "token", keyAuth); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if err := p.CleanUp("example.com", "token", keyAuth); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if n := fake.CallCount("dns/create/") + fake.CallCount("dns/delete/"); n != 0 {
		t.Errorf("expected no writes, got %d", n)
	}
}

func TestNewLegoProvider(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	cfg := testConfig(t, fake)
	cfg.PropagationSeconds = 120
	cfg.PollingInterval = 2 * time.Second

	p, err := NewLegoProvider(cfg)
	if err != nil {
		t.Fatalf("NewLegoProvider: %v", err)
	}
	timeout, interval := p.Timeout()
	if timeout != 120*time.Second || interval != 2*time.Second {
		t.Errorf("unexpected timeout/interval %v/%v", timeout, interval)
	}
}

func TestNewLegoProviderRequiresCredentials(t *testing.T) {
	if _, err := NewLegoProvider(Config{}); err == nil {
		t.Fatal("expected an error without credentials")
	}
}
