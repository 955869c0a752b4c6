package signals

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"phisheye/domainintel"
)

// DefaultTrustedDomains is the built-in allow-list.
var DefaultTrustedDomains = []string{
	"github.com", "gitlab.com", "stackoverflow.com", "wikipedia.org",
	"microsoft.com", "apple.com", "google.com", "amazon.com", "paypal.com",
	"facebook.com", "youtube.com", "reddit.com", "instagram.com",
	"linkedin.com", "twitter.com", "netflix.com", "ebay.com", "cnn.com",
	"bbc.com", "nytimes.com", "chase.com", "bankofamerica.com",
	"wellsfargo.com", "mozilla.org", "adobe.com",
}

// Trusted labels shorter than this ("cnn", "bbc") are not checked for look-alikes.
const minLookalikeLabel = 5

// Aggregator holds the trusted-domain allow-list.
type Aggregator struct {
	trusted map[string]bool
	// label of each trusted registrable domain, e.g. "paypal" -> "paypal.com"
	labels map[string]string
}

// NewAggregator builds an aggregator over the given allow-list.
func NewAggregator(trusted []string) *Aggregator {
	a := &Aggregator{
		trusted: make(map[string]bool, len(trusted)),
		labels:  make(map[string]string, len(trusted)),
	}
	for _, d := range trusted {
		d = domainintel.NormalizeHostname(d)
		if d == "" {
			continue
		}
		a.trusted[d] = true
		if label := firstLabel(d); len(label) >= minLookalikeLabel {
			a.labels[label] = d
		}
	}
	return a
}

// IsTrusted reports whether host, or its registrable domain, is allow-listed.
func (a *Aggregator) IsTrusted(host string) bool {
	host = domainintel.NormalizeHostname(host)
	if host == "" {
		return false
	}
	return a.trusted[host] || a.trusted[domainintel.RegistrableDomain(host)]
}

// Lookalike returns the trusted domain that host imitates, or "". A host
// imitates a trusted domain when its registrable label is one or two edits
// away from the trusted label (paypa1.com, gooogle.com). Identical labels
// under another suffix (google.de) are not reported.
func (a *Aggregator) Lookalike(host string) string {
	host = domainintel.NormalizeHostname(host)
	if host == "" || domainintel.IsIPLiteral(host) || a.IsTrusted(host) {
		return ""
	}
	label := firstLabel(domainintel.RegistrableDomain(host))
	if len(label) < minLookalikeLabel-1 {
		return ""
	}

	best, bestDist := "", -1
	for tl, domain := range a.labels {
		d := levenshtein.ComputeDistance(label, tl)
		if d == 0 || d > maxEdits(tl) {
			continue
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && domain < best) {
			best, bestDist = domain, d
		}
	}
	return best
}

func maxEdits(label string) int {
	if len(label) <= 6 {
		return 1
	}
	return 2
}

func firstLabel(domain string) string {
	if i := strings.Index(domain, "."); i >= 0 {
		return domain[:i]
	}
	return domain
}
