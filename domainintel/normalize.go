package domainintel

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// NormalizeHostname lowercases a host, strips a port, a trailing dot and a
// leading "www." and converts IDNs to their ASCII form. Full URLs are
// accepted too; only the host part is kept.
func NormalizeHostname(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}

	if strings.HasPrefix(host, "[") {
		// bracketed IPv6, optionally with a port
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}

	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return host
}

// IsIPLiteral reports whether host is an IPv4 or IPv6 address.
func IsIPLiteral(host string) bool {
	return net.ParseIP(host) != nil
}

// RegistrableDomain returns the eTLD+1 of host, which is what registries
// answer for. Hosts that are themselves a public suffix are returned as is.
func RegistrableDomain(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}
