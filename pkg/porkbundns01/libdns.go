package porkbundns01

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/libdns/libdns"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun"
)

// LibDNSProvider exposes Porkbun through the libdns record interfaces. Only
// TXT records are handled; zones may be given with or without the trailing
// dot.
type LibDNSProvider struct {
	client *porkbun.Provider
}

var (
	_ libdns.RecordGetter   = (*LibDNSProvider)(nil)
	_ libdns.RecordAppender = (*LibDNSProvider)(nil)
	_ libdns.RecordDeleter  = (*LibDNSProvider)(nil)
)

// NewLibDNSProvider returns a libdns provider. Only the credentials, Endpoint
// and TTL of cfg are used.
func NewLibDNSProvider(cfg Config) (*LibDNSProvider, error) {
	client, err := cfg.client()
	if err != nil {
		return nil, err
	}
	return &LibDNSProvider{client: client}, nil
}

// GetRecords returns the TXT records of zone.
func (l *LibDNSProvider) GetRecords(ctx context.Context, zone string) ([]libdns.Record, error) {
	zone = strings.TrimSuffix(zone, ".")
	records, err := l.client.RetrieveRecords(ctx, zone)
	if err != nil {
		return nil, err
	}

	var out []libdns.Record
	for _, r := range records {
		if r.Type != dns.RecordTypeTXT {
			continue
		}
		out = append(out, toTXT(r))
	}
	return out, nil
}

// AppendRecords creates the given TXT records and returns them with their
// provider IDs set.
func (l *LibDNSProvider) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	zone = strings.TrimSuffix(zone, ".")

	var added []libdns.Record
	for _, rec := range recs {
		rr := rec.RR()
		if rr.Type != dns.RecordTypeTXT {
			return added, fmt.Errorf("porkbun: unsupported record type %q", rr.Type)
		}
		r := dns.Record{
			Type:    rr.Type,
			Name:    fromLibDNSName(rr.Name),
			Content: rr.Data,
			TTL:     int(rr.TTL / time.Second),
		}
		id, err := l.client.CreateRecord(ctx, zone, r)
		if err != nil {
			return added, err
		}
		r.ID = id
		added = append(added, toTXT(r))
	}
	return added, nil
}

// DeleteRecords removes the given TXT records. Records carrying a provider ID
// are deleted by ID; otherwise every TXT record at the name whose content
// matches (any content when empty) is deleted.
func (l *LibDNSProvider) DeleteRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	zone = strings.TrimSuffix(zone, ".")

	var deleted []libdns.Record
	for _, rec := range recs {
		rr := rec.RR()
		if rr.Type != "" && rr.Type != dns.RecordTypeTXT {
			return deleted, fmt.Errorf("porkbun: unsupported record type %q", rr.Type)
		}

		if txt, ok := rec.(libdns.TXT); ok {
			if id, ok := txt.ProviderData.(string); ok && id != "" {
				if err := l.deleteOne(ctx, zone, id); err != nil {
					return deleted, err
				}
				deleted = append(deleted, txt)
				continue
			}
		}

		existing, err := l.client.ListRecords(ctx, zone, dns.RecordTypeTXT, fromLibDNSName(rr.Name))
		if err != nil {
			return deleted, err
		}
		for _, r := range existing {
			if rr.Data != "" && r.Content != rr.Data {
				continue
			}
			if err := l.deleteOne(ctx, zone, r.ID); err != nil {
				return deleted, err
			}
			deleted = append(deleted, toTXT(r))
		}
	}
	return deleted, nil
}

func (l *LibDNSProvider) deleteOne(ctx context.Context, zone, id string) error {
	if _, err := l.client.DeleteRecord(ctx, zone, id); err != nil {
		return err
	}
	return nil
}

func toTXT(r dns.Record) libdns.TXT {
	name := r.Name
	if name == "" {
		name = "@"
	}
	return libdns.TXT{
		Name:         name,
		TTL:          time.Duration(r.TTL) * time.Second,
		Text:         r.Content,
		ProviderData: r.ID,
	}
}

func fromLibDNSName(name string) string {
	if name == "@" {
		return ""
	}
	return name
}
