package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/challenge"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/config"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/dns/porkbun"
	"github.com/yuriy-kovalchuk/porkbun-dns01/internal/resolve"
)

// options are the flags shared by all commands.
type options struct {
	key                string
	secret             string
	credentials        string
	endpoint           string
	nameservers        []string
	dnsTimeout         time.Duration
	propagationSeconds int
	preferHandle       bool
	handleStore        string

	zapOpts zap.Options
	log     logr.Logger

	// lookup replaces the DNS resolver; set by tests.
	lookup resolve.CanonicalNamer
}

func (o *options) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.key, "key", "", "Porkbun API key (overrides the credentials file)")
	f.StringVar(&o.secret, "secret", "", "Porkbun API secret key (overrides the credentials file)")
	f.StringVar(&o.credentials, "credentials", "", "path to the Porkbun credentials YAML file")
	f.StringVar(&o.endpoint, "endpoint", "", "Porkbun API base URL")
	f.StringSliceVar(&o.nameservers, "nameserver", nil, "nameserver used to follow CNAME/DNAME delegation (repeatable, default: system resolvers)")
	f.DurationVar(&o.dnsTimeout, "dns-timeout", 5*time.Second, "timeout of a single DNS query")
	f.IntVar(&o.propagationSeconds, "propagation-seconds", challenge.DefaultPropagationSeconds, "seconds to wait for the TXT record to propagate")
	f.BoolVar(&o.preferHandle, "prefer-handle", false, "on cleanup, delete by the record ID remembered at perform time instead of looking the record up again")
	f.StringVar(&o.handleStore, "handle-store", "", "redis:// URL of a store shared between perform and cleanup (default: in-process)")
}

// config merges the flags over the credentials file.
func (o *options) config() (*config.Config, error) {
	cfg, err := config.Resolve(config.Config{
		Key:         o.key,
		Secret:      o.secret,
		Endpoint:    o.endpoint,
		Nameservers: o.nameservers,
	}, o.credentials)
	if err != nil {
		return nil, err
	}

	if o.credentials != "" && (o.key == "" || o.secret == "") {
		if err := config.CheckPermissions(o.credentials); err != nil {
			if !errors.Is(err, config.ErrUnsafePermissions) {
				return nil, &config.ConfigurationError{Err: err}
			}
			o.log.Info("credentials file is readable by other users", "reason", err.Error())
		}
	}
	return cfg, nil
}

func (o *options) provider(cfg *config.Config) (*porkbun.Provider, error) {
	p, err := porkbun.New(o.log.WithName("porkbun"), cfg.Settings())
	if err != nil {
		return nil, &config.ConfigurationError{Err: err}
	}
	return p, nil
}

func (o *options) resolver(cfg *config.Config) *resolve.Resolver {
	lookup := o.lookup
	if lookup == nil {
		lookup = resolve.NewDNSLookup(cfg.Nameservers, o.dnsTimeout)
	}
	return resolve.NewResolver(o.log.WithName("resolve"), lookup)
}

func (o *options) store() (challenge.HandleStore, func(), error) {
	if o.handleStore == "" {
		return challenge.NewMemoryStore(), func() {}, nil
	}
	s, err := challenge.NewRedisStore(o.handleStore, challenge.DefaultHandleTTL)
	if err != nil {
		return nil, nil, &config.ConfigurationError{Err: err}
	}
	return s, s.Close, nil
}

// authenticator wires the resolver, the Porkbun provider and the handle store.
// The returned func releases the store.
func (o *options) authenticator() (*challenge.Authenticator, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	p, err := o.provider(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := o.store()
	if err != nil {
		return nil, nil, err
	}

	return &challenge.Authenticator{
		Resolver:           o.resolver(cfg),
		Reconciler:         &challenge.Reconciler{DNS: p, Log: o.log.WithName("reconciler")},
		Store:              store,
		PreferHandle:       o.preferHandle,
		PropagationSeconds: o.propagationSeconds,
		MinTTL:             porkbun.MinTTL,
		Log:                o.log.WithName("authenticator"),
	}, closeStore, nil
}

// wait blocks for the propagation time or until ctx is done.
func (o *options) wait(ctx context.Context) error {
	d := time.Duration(o.propagationSeconds) * time.Second
	o.log.Info("waiting for record propagation", "seconds", o.propagationSeconds)
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for propagation: %w", ctx.Err())
	}
}
