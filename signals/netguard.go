package signals

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// ErrBlockedAddress is returned when a page resolves to a private or
// internal address. The content probe never fetches those.
var ErrBlockedAddress = errors.New("content probe: blocked address")

// blockedCIDRs are the networks a probed page must never resolve to.
var blockedCIDRs = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.0/8",    // loopback
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"100.64.0.0/10",  // carrier-grade NAT
		"169.254.0.0/16", // link-local / cloud metadata
		"0.0.0.0/8",      // unspecified
		"::1/128",        // IPv6 loopback
		"::/128",         // IPv6 unspecified
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // IPv6 unique local
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, _ := net.ParseCIDR(c)
		nets = append(nets, n)
	}
	return nets
}()

// isBlocked reports whether ip falls in a private or internal range.
func isBlocked(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, n := range blockedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// IPResolver is the subset of *net.Resolver the target check needs.
type IPResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// checkTarget rejects URLs whose host is, or resolves to, a blocked address.
// The dial hook repeats the check per connection, so a rebinding answer
// between the two lookups is still refused for HTTP fetches.
func checkTarget(ctx context.Context, resolver IPResolver, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return err
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("content probe: no host in %q", pageURL)
	}
	if ip := net.ParseIP(host); ip != nil {
		if isBlocked(ip) {
			return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
		}
		return nil
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, a := range addrs {
		if isBlocked(a.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrBlockedAddress, host, a.IP)
		}
	}
	return nil
}

// guardedDialControl refuses connections to blocked addresses at dial time.
func guardedDialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); isBlocked(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}
