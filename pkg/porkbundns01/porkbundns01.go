// Package porkbundns01 plugs the Porkbun DNS-01 solver into Go ACME clients:
// lego through LegoProvider, libdns based clients (certmagic, caddy) through
// LibDNSProvider.
package porkbundns01

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/config"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun"
)

// Config holds the Porkbun credentials and solver settings.
type Config struct {
	APIKey       string
	SecretAPIKey string
	// Endpoint overrides the Porkbun API base URL.
	Endpoint string
	// TTL of created records in seconds, at least 600.
	TTL int

	// Nameservers used to follow CNAME/DNAME delegation of the challenge
	// name. Empty means the system resolvers.
	Nameservers []string
	DNSTimeout  time.Duration

	// PropagationSeconds is how long lego waits for the record. Defaults to
	// 600, the Porkbun minimum TTL.
	PropagationSeconds int
	// PollingInterval between lego's propagation checks. Defaults to 10s.
	PollingInterval time.Duration

	Logger logr.Logger
}

func (c Config) client() (*porkbun.Provider, error) {
	settings := (&config.Config{
		Key:      c.APIKey,
		Secret:   c.SecretAPIKey,
		Endpoint: c.Endpoint,
		TTL:      c.TTL,
	}).Settings()
	return porkbun.New(c.Logger.WithName("porkbun"), settings)
}
