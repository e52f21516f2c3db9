package porkbundns01

import (
	"context"
	"time"

	legochallenge "github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/challenge"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/resolve"
)

const defaultPollingInterval = 10 * time.Second

// LegoProvider is a lego DNS-01 provider backed by Porkbun. It follows
// delegation of the challenge name and never removes a TXT record that
// existed before Present.
type LegoProvider struct {
	auth     *challenge.Authenticator
	interval time.Duration
}

var _ legochallenge.ProviderTimeout = (*LegoProvider)(nil)

// NewLegoProvider returns a provider for lego's
// Challenge.SetDNS01Provider.
func NewLegoProvider(cfg Config) (*LegoProvider, error) {
	client, err := cfg.client()
	if err != nil {
		return nil, err
	}

	propagation := cfg.PropagationSeconds
	if propagation <= 0 {
		propagation = challenge.DefaultPropagationSeconds
	}
	auth := &challenge.Authenticator{
		Resolver:           resolve.NewResolver(cfg.Logger.WithName("resolve"), resolve.NewDNSLookup(cfg.Nameservers, cfg.DNSTimeout)),
		Reconciler:         &challenge.Reconciler{DNS: client, Log: cfg.Logger.WithName("reconciler")},
		Store:              challenge.NewMemoryStore(),
		PropagationSeconds: propagation,
		MinTTL:             porkbun.MinTTL,
		Log:                cfg.Logger.WithName("authenticator"),
	}
	return newLegoProvider(auth, cfg.PollingInterval), nil
}

func newLegoProvider(auth *challenge.Authenticator, interval time.Duration) *LegoProvider {
	if interval <= 0 {
		interval = defaultPollingInterval
	}
	return &LegoProvider{auth: auth, interval: interval}
}

func (p *LegoProvider) Present(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	_, err := p.auth.Perform(context.Background(), domain, info.FQDN, info.Value)
	return err
}

func (p *LegoProvider) CleanUp(domain, token, keyAuth string) error {
	info := dns01.GetChallengeInfo(domain, keyAuth)
	return p.auth.Cleanup(context.Background(), domain, info.FQDN, info.Value)
}

func (p *LegoProvider) Timeout() (timeout, interval time.Duration) {
	return time.Duration(p.auth.PropagationSeconds) * time.Second, p.interval
}
