package resolve

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// SplitZone splits an FQDN into its registrable domain (the zone a registrar
// such as Porkbun manages) and the labels to its left.
// e.g. "_acme-challenge.app.example.co.uk" → ("example.co.uk", "_acme-challenge.app")
// e.g. "example.com" → ("example.com", "")
//
// Only ICANN suffixes count: privately operated suffixes like "github.io" are
// treated as ordinary domains under their ICANN parent.
func SplitZone(fqdn string) (zone, name string, err error) {
	fqdn = strings.TrimSuffix(strings.ToLower(fqdn), ".")
	suffix := icannSuffix(fqdn)
	if fqdn == suffix {
		return "", "", fmt.Errorf("%q is a public suffix", fqdn)
	}

	rest := strings.TrimSuffix(fqdn, "."+suffix)
	labels := strings.Split(rest, ".")
	zone = labels[len(labels)-1] + "." + suffix
	name = strings.Join(labels[:len(labels)-1], ".")
	return zone, name, nil
}

// icannSuffix returns the longest ICANN public suffix of domain, or its last
// label when the TLD is unknown.
func icannSuffix(domain string) string {
	suffix, icann := publicsuffix.PublicSuffix(domain)
	for !icann {
		i := strings.IndexByte(suffix, '.')
		if i < 0 {
			return suffix
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[i+1:])
	}
	return suffix
}
