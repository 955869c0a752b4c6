package signals

import (
	"phisheye/domainintel"
)

// ContentSignals describe the page behind a URL. They come either from the
// caller or from a ContentProber.
type ContentSignals struct {
	FormActionIsExternal bool   `json:"form_action_is_external"`
	HasPasswordForm      bool   `json:"has_password_form"`
	FormActionHost       string `json:"form_action_host,omitempty"`
	FetchError           string `json:"fetch_error,omitempty"`
	Source               string `json:"source,omitempty"`
}

// MailSignals is the outcome of an MX probe. Checked is false when the
// lookup itself failed, in which case HasMX means nothing.
type MailSignals struct {
	Checked bool `json:"checked"`
	HasMX   bool `json:"has_mx"`
}

// Set is everything the risk composer needs besides the classifier output.
type Set struct {
	Host          string          `json:"host"`
	Trusted       bool            `json:"trusted"`
	DomainAgeRisk float64         `json:"domain_age_risk"`
	ContentRisk   float64         `json:"content_risk"`
	Content       *ContentSignals `json:"content,omitempty"`
	Mail          *MailSignals    `json:"mail,omitempty"`
	Lookalike     string          `json:"lookalike_of,omitempty"`
}

// DomainAgeRisk is 1 for domains younger than 30 days or of unknown age,
// 0.5 under 90 days and 0 otherwise.
func DomainAgeRisk(rec domainintel.DomainRecord) float64 {
	switch {
	case rec.Status.Failed() || rec.AgeDays < 0:
		return 1
	case rec.AgeDays < 30:
		return 1
	case rec.AgeDays < 90:
		return 0.5
	default:
		return 0
	}
}

// ContentRisk is 1 when the page submits a form to another site.
func ContentRisk(c *ContentSignals) float64 {
	if c != nil && c.FormActionIsExternal {
		return 1
	}
	return 0
}

// Aggregate reduces the auxiliary signals for host into bounded risk
// contributions. A trusted host has both contributions forced to 0.
func (a *Aggregator) Aggregate(host string, rec domainintel.DomainRecord, content *ContentSignals, mail *MailSignals) Set {
	norm := domainintel.NormalizeHostname(host)
	s := Set{
		Host:          norm,
		Trusted:       a.IsTrusted(norm),
		DomainAgeRisk: DomainAgeRisk(rec),
		ContentRisk:   ContentRisk(content),
		Content:       content,
		Mail:          mail,
	}
	if s.Trusted {
		s.DomainAgeRisk = 0
		s.ContentRisk = 0
		return s
	}
	s.Lookalike = a.Lookalike(norm)
	return s
}
