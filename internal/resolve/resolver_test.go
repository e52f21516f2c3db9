package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
)

// fakeLookup maps challenge names to canonical names or errors.
type fakeLookup struct {
	names map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeLookup) CanonicalName(_ context.Context, fqdn string) (string, error) {
	f.calls = append(f.calls, fqdn)
	if err, ok := f.errs[fqdn]; ok {
		return "", err
	}
	if name, ok := f.names[fqdn]; ok {
		return name, nil
	}
	return "", ErrNXDomain
}

func TestResolveWithoutDelegation(t *testing.T) {
	r := NewResolver(logr.Discard(), &fakeLookup{})

	tests := []struct {
		domain   string
		wantZone string
		wantName string
	}{
		{"example.com", "example.com", "_acme-challenge"},
		{"app.example.com", "example.com", "_acme-challenge.app"},
		{"deep.nested.example.com", "example.com", "_acme-challenge.deep.nested"},
		{"example.co.uk", "example.co.uk", "_acme-challenge"},
		{"www.example.co.uk", "example.co.uk", "_acme-challenge.www"},
		{"shop.example.com.au", "example.com.au", "_acme-challenge.shop"},
		{"Example.COM.", "example.com", "_acme-challenge"},
		{"*.example.com", "example.com", "_acme-challenge"},
		{"*.app.example.co.uk", "example.co.uk", "_acme-challenge.app"},
		{"blog.user.github.io", "github.io", "_acme-challenge.blog.user"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.domain)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.domain, err)
			}
			if got.Zone != tt.wantZone {
				t.Errorf("Resolve(%q): got zone %q, want %q", tt.domain, got.Zone, tt.wantZone)
			}
			if got.Name != tt.wantName {
				t.Errorf("Resolve(%q): got name %q, want %q", tt.domain, got.Name, tt.wantName)
			}
		})
	}
}

func TestResolveWildcardMatchesPlain(t *testing.T) {
	r := NewResolver(logr.Discard(), &fakeLookup{})

	plain, err := r.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	wildcard, err := r.Resolve(context.Background(), "*.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if plain != wildcard {
		t.Errorf("expected %+v, got %+v", plain, wildcard)
	}
}

func TestResolveFollowsDelegation(t *testing.T) {
	lookup := &fakeLookup{names: map[string]string{
		"_acme-challenge.foo.example.com": "_acme-challenge.bar.other.org.",
		"_acme-challenge.example.co.uk":   "validation.acme.example.net",
	}}
	r := NewResolver(logr.Discard(), lookup)

	got, err := r.Resolve(context.Background(), "foo.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got != (Target{Zone: "other.org", Name: "_acme-challenge.bar"}) {
		t.Errorf("unexpected target %+v", got)
	}

	got, err = r.Resolve(context.Background(), "*.example.co.uk")
	if err != nil {
		t.Fatal(err)
	}
	if got != (Target{Zone: "example.net", Name: "validation.acme"}) {
		t.Errorf("unexpected target %+v", got)
	}
}

func TestResolveNoAnswerFallsBack(t *testing.T) {
	lookup := &fakeLookup{errs: map[string]error{
		"_acme-challenge.example.com": ErrNoAnswer,
	}}
	r := NewResolver(logr.Discard(), lookup)

	got, err := r.Resolve(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got != (Target{Zone: "example.com", Name: "_acme-challenge"}) {
		t.Errorf("unexpected target %+v", got)
	}
}

func TestResolveLookupFailure(t *testing.T) {
	cause := errors.New("lookup _acme-challenge.example.com.: SERVFAIL")
	lookup := &fakeLookup{errs: map[string]error{
		"_acme-challenge.example.com": cause,
	}}
	r := NewResolver(logr.Discard(), lookup)

	_, err := r.Resolve(context.Background(), "example.com")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected error to wrap the lookup failure, got %v", err)
	}
}

func TestResolveInvalidDomain(t *testing.T) {
	lookup := &fakeLookup{}
	r := NewResolver(logr.Discard(), lookup)

	for _, domain := range []string{"", "*", "exa mple.com", "-bad-.com"} {
		t.Run(domain, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), domain)
			var resErr *ResolutionError
			if !errors.As(err, &resErr) {
				t.Fatalf("Resolve(%q): expected *ResolutionError, got %v", domain, err)
			}
		})
	}
}

func TestResolveIDN(t *testing.T) {
	r := NewResolver(logr.Discard(), &fakeLookup{})

	got, err := r.Resolve(context.Background(), "bücher.example")
	if err != nil {
		t.Fatal(err)
	}
	if got.Zone != "xn--bcher-kva.example" {
		t.Errorf("expected punycode zone, got %q", got.Zone)
	}
}
