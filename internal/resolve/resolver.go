package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/net/idna"
	"k8s.io/apimachinery/pkg/util/validation"
)

// ChallengeLabel is the DNS label hosting DNS-01 validation records.
const ChallengeLabel = "_acme-challenge"

// Target is where a challenge TXT record has to be written.
type Target struct {
	Zone string // registrable domain, e.g. "example.co.uk"
	Name string // relative to Zone, e.g. "_acme-challenge" or "_acme-challenge.app"
}

// ResolutionError reports a failed lookup of the challenge name. Missing
// names and empty answers are not errors; they mean "no delegation".
type ResolutionError struct {
	Domain string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving challenge domain for %s: %v", e.Domain, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Resolver computes challenge targets, honouring CNAME/DNAME delegation of
// the challenge label.
type Resolver struct {
	lookup CanonicalNamer
	log    logr.Logger
}

// NewResolver creates a Resolver using lookup to follow delegations.
func NewResolver(log logr.Logger, lookup CanonicalNamer) *Resolver {
	return &Resolver{lookup: lookup, log: log}
}

// Resolve returns the zone and record name for the challenge of domain. A
// leading wildcard label is ignored.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Target, error) {
	normalized, err := normalize(domain)
	if err != nil {
		return Target{}, &ResolutionError{Domain: domain, Err: err}
	}

	challenge := ChallengeLabel + "." + normalized
	canonical, err := r.lookup.CanonicalName(ctx, challenge)
	switch {
	case errors.Is(err, ErrNXDomain), errors.Is(err, ErrNoAnswer):
		canonical = challenge
	case err != nil:
		return Target{}, &ResolutionError{Domain: domain, Err: err}
	default:
		canonical = strings.TrimSuffix(canonical, ".")
		if canonical != challenge {
			r.log.Info("challenge name is delegated", "name", challenge, "canonical", canonical)
		}
	}

	zone, name, err := SplitZone(canonical)
	if err != nil {
		return Target{}, &ResolutionError{Domain: domain, Err: err}
	}
	r.log.V(1).Info("resolved challenge target", "domain", domain, "zone", zone, "name", name)
	return Target{Zone: zone, Name: name}, nil
}

// normalize strips the wildcard label and converts domain to lowercase ASCII.
func normalize(domain string) (string, error) {
	d := strings.TrimSuffix(strings.TrimSpace(domain), ".")
	d = strings.TrimPrefix(d, "*.")
	d = strings.TrimPrefix(d, "*")

	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	ascii = strings.ToLower(ascii)
	if errs := validation.IsDNS1123Subdomain(ascii); len(errs) > 0 {
		return "", fmt.Errorf("invalid domain %q: %s", domain, strings.Join(errs, "; "))
	}
	return ascii, nil
}
