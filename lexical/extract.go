package lexical

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"phisheye/features"
)

var (
	schemeRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	dottedQuadRe = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
)

// Extractor computes lexical features from a URL string. It does no I/O and
// is safe for concurrent use.
type Extractor struct {
	lists Lists
}

// NewExtractor builds an extractor over the given term lists.
func NewExtractor(lists Lists) *Extractor {
	return &Extractor{lists: lists.normalized()}
}

// Normalize trims the URL and prefixes http:// when no scheme is present.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if !schemeRe.MatchString(s) {
		s = "http://" + s
	}
	return s
}

// Hostname returns the lowercased host of raw, or "" when it has none.
func Hostname(raw string) string {
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Extract never fails. Features that depend on a host or path that could not
// be parsed get features.Missing; host indicator flags default to 0.
func (e *Extractor) Extract(raw string) features.Map {
	full := Normalize(raw)
	lower := strings.ToLower(full)
	urlLen := utf8.RuneCountInString(full)

	m := features.Map{
		"url_length":  float64(urlLen),
		"count-":      float64(strings.Count(full, "-")),
		"count@":      float64(strings.Count(full, "@")),
		"count?":      float64(strings.Count(full, "?")),
		"count%":      float64(strings.Count(full, "%")),
		"count.":      float64(strings.Count(full, ".")),
		"count=":      float64(strings.Count(full, "=")),
		"count-http":  float64(strings.Count(lower, "http")),
		"count-https": float64(strings.Count(lower, "https")),
		"count-www":   float64(strings.Count(lower, "www")),
		"url_entropy": Entropy(full),

		"keyword_count":  float64(countTerms(lower, e.lists.PhishingKeywords)),
		"has_brand_name": flag(containsAny(lower, e.lists.BrandKeywords)),

		"has_ip":              0,
		"has_shortening":      0,
		"suspicious_tld":      0,
		"brand_in_subdomain":  0,
		"brand_not_in_domain": 0,

		"hostname_length":   features.Missing,
		"domain_entropy":    features.Missing,
		"path_length":       features.Missing,
		"fd_length":         features.Missing,
		"count-dir":         features.Missing,
		"path_to_url_ratio": features.Missing,
	}

	digits, letters := 0, 0
	for _, r := range full {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	m["count-digits"] = float64(digits)
	m["count-letters"] = float64(letters)
	m["letters_to_length_ratio"] = ratio(letters, urlLen)
	m["digits_to_length_ratio"] = ratio(digits, urlLen)

	u, err := url.Parse(full)
	if err != nil {
		return m
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return m
	}

	path := u.EscapedPath()
	pathLen := utf8.RuneCountInString(path)
	m["path_length"] = float64(pathLen)
	m["count-dir"] = float64(strings.Count(path, "/"))
	m["fd_length"] = float64(utf8.RuneCountInString(path[strings.LastIndex(path, "/")+1:]))
	m["path_to_url_ratio"] = ratio(pathLen, urlLen)

	m["hostname_length"] = float64(utf8.RuneCountInString(host))
	m["domain_entropy"] = Entropy(host)
	m["has_ip"] = flag(dottedQuadRe.MatchString(host))
	m["has_shortening"] = flag(matchesDomain(host, e.lists.Shorteners))
	m["suspicious_tld"] = flag(hasSuffix(host, e.lists.SuspiciousTLDs))

	sub, registrable := splitHost(host)
	if containsAny(sub, e.lists.BrandKeywords) {
		m["brand_in_subdomain"] = 1
	}
	if containsAny(lower, e.lists.BrandKeywords) && !containsAny(registrable, e.lists.BrandKeywords) {
		m["brand_not_in_domain"] = 1
	}
	return m
}

// splitHost separates the subdomain labels from the registrable domain.
func splitHost(host string) (sub, registrable string) {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", host
	}
	sub = strings.TrimSuffix(strings.TrimSuffix(host, registrable), ".")
	return sub, registrable
}

func countTerms(s string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(s, t) {
			n++
		}
	}
	return n
}

func containsAny(s string, terms []string) bool {
	return s != "" && countTerms(s, terms) > 0
}

// matchesDomain reports whether host is one of domains or a subdomain of one.
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hasSuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return features.Missing
	}
	return float64(part) / float64(whole)
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
