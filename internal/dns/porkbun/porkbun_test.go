package porkbun

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	logrtesting "github.com/go-logr/logr/testing"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun/porkbuntest"
)

func TestNew_ValidSettings(t *testing.T) {
	settings := map[string]string{
		"api_key":        "pk1_key",
		"secret_api_key": "sk1_secret",
	}

	p, err := New(logr.Discard(), settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.endpoint != DefaultEndpoint {
		t.Errorf("expected endpoint %q, got %q", DefaultEndpoint, p.endpoint)
	}
	if p.defaultTTL != MinTTL {
		t.Errorf("expected default TTL %d, got %d", MinTTL, p.defaultTTL)
	}
}

func TestNew_CustomTTL(t *testing.T) {
	p, err := New(logr.Discard(), map[string]string{
		"api_key":        "pk1_key",
		"secret_api_key": "sk1_secret",
		"default_ttl":    "3600",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.defaultTTL != 3600 {
		t.Errorf("expected default TTL 3600, got %d", p.defaultTTL)
	}
}

func TestNew_TTLBelowMinimum(t *testing.T) {
	p, err := New(logr.Discard(), map[string]string{
		"api_key":        "pk1_key",
		"secret_api_key": "sk1_secret",
		"default_ttl":    "300",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.defaultTTL != MinTTL {
		t.Errorf("expected default TTL clamped to %d, got %d", MinTTL, p.defaultTTL)
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	tests := map[string]map[string]string{
		"missing api_key":        {"secret_api_key": "sk1_secret"},
		"missing secret_api_key": {"api_key": "pk1_key"},
		"invalid default_ttl":    {"api_key": "pk1_key", "secret_api_key": "sk1_secret", "default_ttl": "soon"},
		"invalid timeout":        {"api_key": "pk1_key", "secret_api_key": "sk1_secret", "timeout": "forever"},
	}

	for name, settings := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := New(logr.Discard(), settings); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func newTestProvider(t *testing.T, fake *porkbuntest.Server, secret string) *Provider {
	t.Helper()
	p, err := New(logrtesting.NewTestLogger(t), map[string]string{
		"api_key":        "key",
		"secret_api_key": secret,
		"endpoint":       fake.Endpoint(),
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func TestPing(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	p := newTestProvider(t, fake, "secret")

	ip, err := p.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if ip != "192.0.2.1" {
		t.Errorf("expected ip 192.0.2.1, got %q", ip)
	}
}

func TestInvalidCredentials(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	p := newTestProvider(t, fake, "wrong")

	_, err := p.ListRecords(context.Background(), "example.com", dns.RecordTypeTXT, "_acme-challenge")
	if err == nil {
		t.Fatal("expected error for invalid credentials")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "Invalid API key. (001)" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestCreateListDelete(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	fake.AddRecord("example.com", "_acme-challenge", "TXT", "other-token")
	fake.AddRecord("example.com", "www", "A", "192.0.2.10")
	p := newTestProvider(t, fake, "secret")
	ctx := context.Background()

	id, err := p.CreateRecord(ctx, "example.com", dns.Record{
		Type:    dns.RecordTypeTXT,
		Name:    "_acme-challenge",
		Content: "ABCDEF",
	})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if id == "" {
		t.Fatal("expected a record id")
	}

	body := fake.LastBody()
	if body["ttl"] != "600" {
		t.Errorf("expected ttl '600', got %v", body["ttl"])
	}
	if body["name"] != "_acme-challenge" || body["content"] != "ABCDEF" || body["type"] != "TXT" {
		t.Errorf("unexpected create body: %v", body)
	}

	records, err := p.ListRecords(ctx, "example.com", dns.RecordTypeTXT, "_acme-challenge")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 TXT records, got %d", len(records))
	}
	for _, r := range records {
		if r.Name != "_acme-challenge" {
			t.Errorf("expected relative name '_acme-challenge', got %q", r.Name)
		}
	}

	ok, err := p.DeleteRecord(ctx, "example.com", id)
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if !ok {
		t.Fatal("expected delete to succeed")
	}
	if got := len(fake.Records("example.com")); got != 2 {
		t.Errorf("expected 2 records left, got %d", got)
	}
}

func TestDeleteUnknownRecord(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	p := newTestProvider(t, fake, "secret")

	ok, err := p.DeleteRecord(context.Background(), "example.com", "42")
	if err == nil {
		t.Fatal("expected error deleting unknown record")
	}
	if ok {
		t.Error("expected ok=false")
	}
}

func TestDeleteRecordErrorStatus(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	id := fake.AddRecord("example.com", "_acme-challenge", "TXT", "tok")
	fake.FailDelete = true
	p := newTestProvider(t, fake, "secret")

	ok, err := p.DeleteRecord(context.Background(), "example.com", id)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "delete failed" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
	if ok {
		t.Error("expected ok=false")
	}
	if got := len(fake.Records("example.com")); got != 1 {
		t.Errorf("expected the record to be kept, got %d records", got)
	}
}

func TestRetrieveRecords(t *testing.T) {
	fake := porkbuntest.NewServer(t, "key", "secret")
	fake.AddRecord("example.com", "", "A", "192.0.2.10")
	fake.AddRecord("example.com", "_acme-challenge", "TXT", "tok")
	p := newTestProvider(t, fake, "secret")

	records, err := p.RetrieveRecords(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("RetrieveRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "" {
		t.Errorf("expected apex record name '', got %q", records[0].Name)
	}
	if records[1].TTL != 600 {
		t.Errorf("expected TTL 600, got %d", records[1].TTL)
	}
}
