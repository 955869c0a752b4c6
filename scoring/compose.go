package scoring

import (
	"fmt"
	"math"
	"time"

	"phisheye/classifier"
	"phisheye/domainintel"
	"phisheye/signals"
)

// Verdict is the final classification of a URL.
type Verdict string

const (
	Safe       Verdict = "SAFE"
	Suspicious Verdict = "SUSPICIOUS"
	Malicious  Verdict = "MALICIOUS"
)

var recommendedActions = map[Verdict]string{
	Safe:       "Allow access",
	Suspicious: "Show warning",
	Malicious:  "Block access",
}

// Action returns the recommended client action for v.
func (v Verdict) Action() string {
	return recommendedActions[v]
}

// Breakdown shows how each component contributed to the score.
type Breakdown struct {
	MLProbability      float64 `json:"ml_probability"`
	MLComponent        float64 `json:"ml_component"`
	DomainAgeRisk      float64 `json:"domain_age_risk"`
	DomainAgeComponent float64 `json:"domain_age_component"`
	ContentRisk        float64 `json:"content_risk"`
	ContentComponent   float64 `json:"content_component"`
	TrustedOverride    bool    `json:"trusted_override"`
	RawScore           float64 `json:"raw_score"`
}

// DomainSummary is the informational view of the DomainRecord in a report.
type DomainSummary struct {
	Hostname     string             `json:"hostname"`
	Status       domainintel.Status `json:"status"`
	LookupFailed bool               `json:"lookup_failed"`
	AgeDays      int                `json:"age_days"`
	LifespanDays int                `json:"lifespan_days"`
	CreatedOn    string             `json:"created_on,omitempty"`
	ExpiresOn    string             `json:"expires_on,omitempty"`
	Registrar    string             `json:"registrar,omitempty"`
	Attempts     int                `json:"attempts"`
}

// Report is the result of analyzing one URL.
type Report struct {
	Success             bool                      `json:"success"`
	URL                 string                    `json:"url"`
	ThreatScore         int                       `json:"threat_score"`
	Verdict             Verdict                   `json:"verdict"`
	RecommendedAction   string                    `json:"recommended_action"`
	Confidence          float64                   `json:"confidence"`
	ReasoningHighlights []string                  `json:"reasoning_highlights"`
	FeaturesUsed        int                       `json:"features_used"`
	ModelVersion        string                    `json:"model_version,omitempty"`
	Domain              DomainSummary             `json:"domain"`
	Signals             signals.Set               `json:"signals"`
	Breakdown           Breakdown                 `json:"breakdown"`
	TopFeatures         []classifier.Contribution `json:"top_features,omitempty"`
	Timestamp           string                    `json:"timestamp"`
}

// Composer turns a classifier probability and auxiliary signals into a
// Report. It is immutable and safe for concurrent use.
type Composer struct {
	weights         Weights
	thresholds      Thresholds
	highProbability float64
}

// NewComposer validates its configuration.
func NewComposer(w Weights, t Thresholds, highProbability float64) (*Composer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if highProbability <= 0 || highProbability > 1 {
		return nil, fmt.Errorf("high probability %v must be within (0,1]", highProbability)
	}
	return &Composer{weights: w, thresholds: t, highProbability: highProbability}, nil
}

// Compose computes the score, verdict and highlights.
func (c *Composer) Compose(prob float64, rec domainintel.DomainRecord, aux signals.Set) Report {
	p := clamp01(prob)
	ageRisk := clamp01(aux.DomainAgeRisk)
	contentRisk := clamp01(aux.ContentRisk)
	if aux.Trusted {
		ageRisk, contentRisk = 0, 0
	}

	b := Breakdown{
		MLProbability:      p,
		MLComponent:        c.weights.ML * p,
		DomainAgeRisk:      ageRisk,
		DomainAgeComponent: c.weights.DomainAge * ageRisk,
		ContentRisk:        contentRisk,
		ContentComponent:   c.weights.Content * contentRisk,
		TrustedOverride:    aux.Trusted,
	}
	b.RawScore = clamp01(b.MLComponent + b.DomainAgeComponent + b.ContentComponent)

	score := int(math.Round(100 * b.RawScore))
	verdict := c.verdict(score)

	return Report{
		Success:             true,
		ThreatScore:         score,
		Verdict:             verdict,
		RecommendedAction:   verdict.Action(),
		Confidence:          math.Round(p*1000) / 1000,
		ReasoningHighlights: c.highlights(p, rec, aux),
		Domain:              summarize(rec),
		Signals:             aux,
		Breakdown:           b,
	}
}

func (c *Composer) verdict(score int) Verdict {
	switch {
	case score > c.thresholds.Malicious:
		return Malicious
	case score > c.thresholds.Suspicious:
		return Suspicious
	default:
		return Safe
	}
}

// clamp01 bounds v to [0,1]. NaN fails closed to 1.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func summarize(rec domainintel.DomainRecord) DomainSummary {
	s := DomainSummary{
		Hostname:     rec.Hostname,
		Status:       rec.Status,
		LookupFailed: rec.Status.Failed(),
		AgeDays:      rec.AgeDays,
		LifespanDays: rec.LifespanDays,
		Registrar:    rec.Registrar,
		Attempts:     rec.Attempts,
	}
	if rec.CreatedAt != nil {
		s.CreatedOn = rec.CreatedAt.Format(time.DateOnly)
	}
	if rec.ExpiresAt != nil {
		s.ExpiresOn = rec.ExpiresAt.Format(time.DateOnly)
	}
	return s
}
