package challenge

import "fmt"

// ProviderError wraps a failure reported by the DNS provider while changing
// or listing the challenge record.
type ProviderError struct {
	Op   string // "list", "create" or "delete"
	Zone string
	Name string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s TXT record %q in zone %s: %v", e.Op, e.Name, e.Zone, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PluginError is the single error kind handed back to the challenge
// orchestrator. The underlying ResolutionError, ProviderError or
// ConfigurationError stays reachable through errors.As.
type PluginError struct {
	Domain string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("dns-01 challenge for %s failed: %v", e.Domain, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }
