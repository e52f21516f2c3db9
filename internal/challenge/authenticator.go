package challenge

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/resolve"
)

// DefaultPropagationSeconds is how long orchestrators should wait for the
// record to become visible. It matches the Porkbun minimum TTL.
const DefaultPropagationSeconds = 600

// Resolver computes where the challenge record of a domain lives.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (resolve.Target, error)
}

// Authenticator performs and cleans up DNS-01 challenges. It is what the
// challenge orchestrator calls.
type Authenticator struct {
	Resolver   Resolver
	Reconciler *Reconciler
	// Store remembers handles between Perform and Cleanup. Optional.
	Store HandleStore
	// PreferHandle makes Cleanup delete by the stored record ID instead of
	// resolving and listing again. Off by default: a fresh lookup also works
	// when the process restarted between Perform and Cleanup.
	PreferHandle bool

	PropagationSeconds int
	// MinTTL is the provider's minimum record TTL in seconds.
	MinTTL int

	Log logr.Logger
}

// Perform writes the TXT record for validation under the challenge name of
// domain and returns its handle.
func (a *Authenticator) Perform(ctx context.Context, domain, validationName, validation string) (Handle, error) {
	log := a.Log.WithValues("domain", domain)

	if a.PropagationSeconds < a.MinTTL {
		log.Info("propagation time is below the provider's minimum TTL; subsequent challenges for the same domain may fail, consider increasing it",
			"propagationSeconds", a.PropagationSeconds, "minTTL", a.MinTTL)
	}

	target, err := a.Resolver.Resolve(ctx, domain)
	if err != nil {
		return Handle{}, &PluginError{Domain: domain, Err: err}
	}
	log.V(1).Info("performing challenge", "validationName", validationName, "zone", target.Zone, "name", target.Name)

	h, err := a.Reconciler.EnsurePresent(ctx, target.Zone, target.Name, validation)
	if err != nil {
		return Handle{}, &PluginError{Domain: domain, Err: err}
	}

	if a.Store != nil {
		if err := a.Store.Put(ctx, validation, h); err != nil {
			// Cleanup can still find the record by content.
			log.Error(err, "failed to remember challenge record")
		}
	}
	return h, nil
}

// Cleanup removes the TXT record written by Perform for validation. A record
// that cannot be found is logged and treated as cleaned up. A record that
// already existed when Perform ran is never removed.
func (a *Authenticator) Cleanup(ctx context.Context, domain, validationName, validation string) error {
	log := a.Log.WithValues("domain", domain)

	var (
		handle Handle
		found  bool
	)
	if a.Store != nil {
		var err error
		handle, found, err = a.Store.Take(ctx, validation)
		if err != nil {
			log.Error(err, "failed to load challenge record handle, looking the record up instead")
			found = false
		}
	}

	if found && !handle.Created {
		log.Info("challenge TXT record predates this challenge, leaving it", "zone", handle.Zone, "name", handle.Name, "id", handle.ID)
		return nil
	}

	if a.PreferHandle && found {
		log.V(1).Info("cleaning up by handle", "zone", handle.Zone, "name", handle.Name, "id", handle.ID)
		if err := a.Reconciler.EnsureAbsent(ctx, handle.Zone, handle.Name, validation, &handle); err != nil {
			return &PluginError{Domain: domain, Err: err}
		}
		return nil
	}

	target, err := a.Resolver.Resolve(ctx, domain)
	if err != nil {
		return &PluginError{Domain: domain, Err: err}
	}
	log.V(1).Info("cleaning up challenge", "validationName", validationName, "zone", target.Zone, "name", target.Name)

	if err := a.Reconciler.EnsureAbsent(ctx, target.Zone, target.Name, validation, nil); err != nil {
		return &PluginError{Domain: domain, Err: err}
	}
	return nil
}
