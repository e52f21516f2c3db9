package resolve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

var (
	// ErrNXDomain reports that the queried name does not exist.
	ErrNXDomain = errors.New("no such domain")
	// ErrNoAnswer reports that the name exists but has no CNAME/DNAME chain.
	ErrNoAnswer = errors.New("no answer")
)

// maxChaseHops bounds how many times a delegation chain is re-queried.
const maxChaseHops = 8

// CanonicalNamer follows CNAME and DNAME records for a name.
type CanonicalNamer interface {
	// CanonicalName returns the final target of the chain starting at fqdn.
	// It returns ErrNXDomain or ErrNoAnswer when fqdn is not delegated.
	CanonicalName(ctx context.Context, fqdn string) (string, error)
}

// DNSLookup implements CanonicalNamer with recursive queries against a set of
// nameservers.
type DNSLookup struct {
	Nameservers []string // host:port
	client      *dns.Client
	tcpClient   *dns.Client
}

// NewDNSLookup creates a lookup using the given nameservers. Without
// nameservers it uses the system resolver configuration, falling back to
// 1.1.1.1.
func NewDNSLookup(nameservers []string, timeout time.Duration) *DNSLookup {
	if len(nameservers) == 0 {
		nameservers = systemNameservers()
	}
	servers := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		if _, _, err := net.SplitHostPort(ns); err != nil {
			ns = net.JoinHostPort(ns, "53")
		}
		servers = append(servers, ns)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DNSLookup{
		Nameservers: servers,
		client:      &dns.Client{Timeout: timeout},
		tcpClient:   &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

func systemNameservers() []string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return []string{"1.1.1.1:53"}
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	return servers
}

// CanonicalName queries fqdn and follows any CNAME or DNAME records in the
// answer, re-querying from the new name until the chain ends.
func (l *DNSLookup) CanonicalName(ctx context.Context, fqdn string) (string, error) {
	start := dns.Fqdn(strings.ToLower(fqdn))
	current := start

	for hop := 0; hop < maxChaseHops; hop++ {
		resp, err := l.exchange(ctx, current)
		if err != nil {
			return "", err
		}

		next := followChain(current, resp.Answer)
		if next != current {
			current = next
			continue
		}

		if current != start {
			// The delegation target itself may not exist yet.
			return current, nil
		}
		switch resp.Rcode {
		case dns.RcodeNameError:
			return "", ErrNXDomain
		case dns.RcodeSuccess:
			return "", ErrNoAnswer
		default:
			return "", fmt.Errorf("lookup %s: %s", current, dns.RcodeToString[resp.Rcode])
		}
	}
	return "", fmt.Errorf("lookup %s: delegation chain longer than %d hops", start, maxChaseHops)
}

func (l *DNSLookup) exchange(ctx context.Context, name string) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeTXT)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range l.Nameservers {
		resp, _, err := l.client.ExchangeContext(ctx, m, server)
		if err == nil && resp.Truncated {
			// A truncated answer may be missing the CNAME/DNAME records.
			resp, _, err = l.tcpClient.ExchangeContext(ctx, m, server)
		}
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("lookup %s: %w", name, lastErr)
}

// followChain applies the CNAME and DNAME records of an answer section to
// name, in order, and returns the resulting name. Looping chains stop after
// every record had a chance to apply.
func followChain(name string, answer []dns.RR) string {
	for pass, changed := 0, true; changed && pass <= len(answer); pass++ {
		changed = false
		for _, rr := range answer {
			switch v := rr.(type) {
			case *dns.CNAME:
				if strings.EqualFold(v.Hdr.Name, name) {
					name = strings.ToLower(v.Target)
					changed = true
				}
			case *dns.DNAME:
				owner := strings.ToLower(v.Hdr.Name)
				if name != owner && dns.IsSubDomain(owner, name) {
					name = strings.TrimSuffix(name, owner) + strings.ToLower(v.Target)
					changed = true
				}
			}
		}
	}
	return name
}
