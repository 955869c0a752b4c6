package signals

import (
	"context"
	"errors"
	"net"
	"time"

	"phisheye/domainintel"
)

// MXResolver is the subset of *net.Resolver the mail probe needs.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// MailProber checks whether a domain publishes mail exchangers. Throwaway
// phishing domains rarely bother to.
type MailProber struct {
	resolver MXResolver
	timeout  time.Duration
}

// NewMailProber creates a prober; a nil resolver uses net.DefaultResolver.
func NewMailProber(resolver MXResolver, timeout time.Duration) *MailProber {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &MailProber{resolver: resolver, timeout: timeout}
}

// Probe looks up MX records for the registrable domain of host. A lookup
// that fails for any reason other than "no such records" comes back
// unchecked.
func (p *MailProber) Probe(ctx context.Context, host string) *MailSignals {
	host = domainintel.NormalizeHostname(host)
	if host == "" || domainintel.IsIPLiteral(host) {
		return &MailSignals{}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	mx, err := p.resolver.LookupMX(ctx, domainintel.RegistrableDomain(host))
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return &MailSignals{Checked: true}
		}
		return &MailSignals{}
	}
	return &MailSignals{Checked: true, HasMX: len(mx) > 0}
}
