package dns

import "context"

// RecordTypeTXT is the only record type the challenge code writes.
const RecordTypeTXT = "TXT"

// Record represents a DNS record as stored by the provider.
type Record struct {
	ID      string // provider-assigned identifier
	Type    string // "TXT"
	Name    string // relative to the zone, e.g. "_acme-challenge.app"; empty for the apex
	Content string
	TTL     int // 0 = provider default
}

// Provider is the record API the challenge reconciler talks to. Lookups are
// scoped by exact type and exact name within a zone.
type Provider interface {
	ListRecords(ctx context.Context, zone, recordType, name string) ([]Record, error)
	CreateRecord(ctx context.Context, zone string, record Record) (string, error)
	DeleteRecord(ctx context.Context, zone, id string) (bool, error)
}
