package challenge

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns"
)

// Handle identifies the TXT record of one challenge so it can be removed
// later without another lookup.
type Handle struct {
	Zone string `json:"zone"`
	Name string `json:"name"`
	ID   string `json:"id"`
	// Created is false when an identical record already existed and was
	// left untouched.
	Created bool `json:"created"`
}

// Reconciler creates and removes challenge TXT records idempotently.
type Reconciler struct {
	DNS dns.Provider
	Log logr.Logger
}

// EnsurePresent makes sure a TXT record with content token exists at name in
// zone. Records at the same name with other content are left alone.
func (r *Reconciler) EnsurePresent(ctx context.Context, zone, name, token string) (Handle, error) {
	existing, err := r.find(ctx, zone, name, token)
	if err != nil {
		return Handle{}, err
	}
	if existing != nil {
		r.Log.Info("challenge TXT record already exists, skipping creation", "zone", zone, "name", name, "id", existing.ID)
		return Handle{Zone: zone, Name: name, ID: existing.ID}, nil
	}

	id, err := r.DNS.CreateRecord(ctx, zone, dns.Record{
		Type:    dns.RecordTypeTXT,
		Name:    name,
		Content: token,
	})
	if err != nil {
		return Handle{}, &ProviderError{Op: "create", Zone: zone, Name: name, Err: err}
	}

	r.Log.Info("created challenge TXT record", "zone", zone, "name", name, "id", id)
	return Handle{Zone: zone, Name: name, ID: id, Created: true}, nil
}

// EnsureAbsent removes the TXT record with content token at name in zone.
// With a handle the record is deleted by ID, or kept when the handle says it
// predates the challenge. Without one the record is looked up by content; a
// missing record is not an error.
func (r *Reconciler) EnsureAbsent(ctx context.Context, zone, name, token string, handle *Handle) error {
	if handle != nil {
		if !handle.Created {
			r.Log.Info("challenge TXT record was not created by this challenge, leaving it", "zone", handle.Zone, "name", handle.Name, "id", handle.ID)
			return nil
		}
		return r.delete(ctx, handle.Zone, handle.Name, handle.ID)
	}

	existing, err := r.find(ctx, zone, name, token)
	if err != nil {
		return err
	}
	if existing == nil {
		r.Log.Info("no challenge TXT record found, nothing to delete", "zone", zone, "name", name)
		return nil
	}
	return r.delete(ctx, zone, name, existing.ID)
}

func (r *Reconciler) find(ctx context.Context, zone, name, token string) (*dns.Record, error) {
	records, err := r.DNS.ListRecords(ctx, zone, dns.RecordTypeTXT, name)
	if err != nil {
		return nil, &ProviderError{Op: "list", Zone: zone, Name: name, Err: err}
	}
	for i := range records {
		if records[i].Content == token {
			return &records[i], nil
		}
	}
	return nil, nil
}

func (r *Reconciler) delete(ctx context.Context, zone, name, id string) error {
	ok, err := r.DNS.DeleteRecord(ctx, zone, id)
	if err != nil {
		return &ProviderError{Op: "delete", Zone: zone, Name: name, Err: err}
	}
	if !ok {
		return &ProviderError{Op: "delete", Zone: zone, Name: name, Err: errors.New("provider did not confirm the deletion")}
	}
	r.Log.Info("deleted challenge TXT record", "zone", zone, "name", name, "id", id)
	return nil
}
