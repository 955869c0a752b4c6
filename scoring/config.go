package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Weights defines how much each component contributes to the threat score.
// They must add up to 1 so the score stays within 0..100.
type Weights struct {
	ML        float64 `yaml:"ml" json:"ml"`                 // Default: 0.5
	DomainAge float64 `yaml:"domain_age" json:"domain_age"` // Default: 0.3
	Content   float64 `yaml:"content" json:"content"`       // Default: 0.2
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		ML:        0.5,
		DomainAge: 0.3,
		Content:   0.2,
	}
}

// Validate rejects negative weights and weights that do not sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"ml": w.ML, "domain_age": w.DomainAge, "content": w.Content} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s = %v must be >= 0", name, v)
		}
	}
	if sum := w.ML + w.DomainAge + w.Content; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights sum to %v, want 1", sum)
	}
	return nil
}

// Thresholds defines the verdict boundaries. A score strictly above
// Malicious is MALICIOUS, strictly above Suspicious is SUSPICIOUS.
type Thresholds struct {
	Malicious  int `yaml:"malicious" json:"malicious"`   // Default: 70
	Suspicious int `yaml:"suspicious" json:"suspicious"` // Default: 30
	// SAFE: 0..Suspicious
}

// DefaultThresholds returns default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Malicious:  70,
		Suspicious: 30,
	}
}

// Validate checks 0 <= Suspicious < Malicious <= 100.
func (t Thresholds) Validate() error {
	if t.Suspicious < 0 || t.Malicious > 100 || t.Suspicious >= t.Malicious {
		return errors.New("thresholds must satisfy 0 <= suspicious < malicious <= 100")
	}
	return nil
}

// DefaultHighProbability is the classifier probability above which the
// model's opinion alone earns a highlight.
const DefaultHighProbability = 0.9
