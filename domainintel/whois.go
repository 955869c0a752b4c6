package domainintel

import (
	"context"
	"fmt"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
	"golang.org/x/time/rate"
)

// Registry answers registration queries for a registrable domain.
// Implementations may block; the Resolver enforces its own wall clock.
type Registry interface {
	Lookup(ctx context.Context, domain string) (Registration, error)
}

// WhoisRegistry queries public WHOIS servers.
type WhoisRegistry struct {
	client  *whois.Client
	limiter *rate.Limiter
}

// NewWhoisRegistry builds a registry client. qps <= 0 disables local pacing.
func NewWhoisRegistry(timeout time.Duration, qps float64, burst int) *WhoisRegistry {
	limit := rate.Inf
	if qps > 0 {
		limit = rate.Limit(qps)
	}
	if burst < 1 {
		burst = 1
	}
	return &WhoisRegistry{
		client:  whois.NewClient().SetTimeout(timeout),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Lookup fetches and parses the WHOIS record for domain.
func (r *WhoisRegistry) Lookup(ctx context.Context, domain string) (Registration, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return Registration{}, ctx.Err()
		}
		// the limiter could not grant a slot before the deadline
		return Registration{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	raw, err := r.client.Whois(domain)
	if err != nil {
		return Registration{}, fmt.Errorf("whois %s: %w", domain, err)
	}
	return ParseRegistration(raw)
}

//
// WHOIS PARSING
//

// dateLayouts covers the formats seen across common registries.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"2006/01/02",
	"02.01.2006",
	"02/01/2006",
	"January 2 2006",
}

// ParseRegistration extracts creation/expiration dates from a raw WHOIS
// response. Partial data (e.g. no expiration date) is not an error.
func ParseRegistration(raw string) (Registration, error) {
	p, err := parser.Parse(raw)
	if err != nil {
		return Registration{}, fmt.Errorf("parse whois: %w", err)
	}
	if p.Domain == nil {
		return Registration{}, ErrNoRegistrationData
	}

	reg := Registration{
		CreatedAt: parseDate(p.Domain.CreatedDate),
		ExpiresAt: parseDate(p.Domain.ExpirationDate),
	}
	if p.Registrar != nil {
		reg.Registrar = strings.TrimSpace(p.Registrar.Name)
	}
	return reg, nil
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
