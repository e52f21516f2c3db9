package dns

import (
	"strings"
)

// Fqdn joins a zone-relative name and its zone.
// e.g. ("_acme-challenge", "example.com") → "_acme-challenge.example.com"
// e.g. ("", "example.com") → "example.com"
func Fqdn(name, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if name == "" {
		return zone
	}
	return name + "." + zone
}

// RelativeName strips the zone from an FQDN.
// e.g. ("_acme-challenge.app.example.com.", "example.com") → "_acme-challenge.app"
// e.g. ("example.com", "example.com") → ""
// Names outside the zone are returned without the trailing dot.
func RelativeName(fqdn, zone string) string {
	fqdn = strings.TrimSuffix(strings.ToLower(fqdn), ".")
	zone = strings.TrimSuffix(strings.ToLower(zone), ".")
	if fqdn == zone {
		return ""
	}
	return strings.TrimSuffix(fqdn, "."+zone)
}
