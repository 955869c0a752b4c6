package lexical

import "strings"

// Lists are the curated term sets the extractor matches against.
// They are part of the feature definition: changing them changes what the
// model sees, so they should only move together with a retrained model.
type Lists struct {
	PhishingKeywords []string `yaml:"phishing_keywords"`
	BrandKeywords    []string `yaml:"brand_keywords"`
	Shorteners       []string `yaml:"shorteners"`
	SuspiciousTLDs   []string `yaml:"suspicious_tlds"`
}

// DefaultPhishingKeywords are words common in credential-harvesting URLs.
var DefaultPhishingKeywords = []string{
	"login", "secure", "account", "update", "verify", "webscr", "signin",
	"banking", "confirm", "ebayisapi", "apple", "microsoft", "google",
	"paypal", "amazon",
}

// DefaultBrandKeywords are frequently impersonated brands.
var DefaultBrandKeywords = []string{
	"paypal", "apple", "microsoft", "google", "amazon", "ebay", "bank",
}

// DefaultShorteners are public URL-shortening services.
var DefaultShorteners = []string{
	"bit.ly", "goo.gl", "shorte.st", "go2l.ink", "x.co", "ow.ly", "t.co",
	"tinyurl.com", "is.gd", "cutt.ly",
}

// DefaultSuspiciousTLDs are TLDs with a high share of abusive registrations.
var DefaultSuspiciousTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".loan", ".club",
}

// DefaultLists returns the built-in lists.
func DefaultLists() Lists {
	return Lists{
		PhishingKeywords: DefaultPhishingKeywords,
		BrandKeywords:    DefaultBrandKeywords,
		Shorteners:       DefaultShorteners,
		SuspiciousTLDs:   DefaultSuspiciousTLDs,
	}
}

// normalized lowercases every entry, drops blanks and gives TLDs a leading dot.
func (l Lists) normalized() Lists {
	out := Lists{
		PhishingKeywords: cleanTerms(l.PhishingKeywords),
		BrandKeywords:    cleanTerms(l.BrandKeywords),
		Shorteners:       cleanTerms(l.Shorteners),
		SuspiciousTLDs:   cleanTerms(l.SuspiciousTLDs),
	}
	for i, tld := range out.SuspiciousTLDs {
		if !strings.HasPrefix(tld, ".") {
			out.SuspiciousTLDs[i] = "." + tld
		}
	}
	return out
}

func cleanTerms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
