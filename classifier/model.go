package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sort"

	"phisheye/features"
)

var (
	// ErrShapeMismatch means a vector does not have the model's feature layout.
	ErrShapeMismatch = errors.New("classifier: feature vector shape mismatch")
	// ErrNonFinite means the model produced NaN or an infinity.
	ErrNonFinite = errors.New("classifier: non-finite probability")
)

// Model scores feature vectors with a loaded artifact. It is read-only after
// Load and safe for concurrent use.
type Model struct {
	artifact Artifact
	path     string
}

// Info describes the loaded model.
type Info struct {
	Version       string   `json:"version"`
	Kind          string   `json:"kind"`
	Path          string   `json:"path,omitempty"`
	FeatureCount  int      `json:"feature_count"`
	FeatureNames  []string `json:"feature_names"`
	SchemaVersion string   `json:"schema_version"`
}

// Contribution is one feature's share of an explanation.
type Contribution struct {
	Feature    string  `json:"feature"`
	Value      float64 `json:"value"`
	Importance float64 `json:"importance"`
	Weight     float64 `json:"weight"`
}

// Load reads and validates a model artifact from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// Parse decodes and validates a JSON artifact.
func Parse(data []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &Model{artifact: a}, nil
}

// FeatureNames returns the ordered names the model was trained on.
func (m *Model) FeatureNames() []string {
	return slices.Clone(m.artifact.FeatureNames)
}

// Info returns a description of the model.
func (m *Model) Info() Info {
	return Info{
		Version:       m.artifact.Version,
		Kind:          m.artifact.Kind,
		Path:          m.path,
		FeatureCount:  len(m.artifact.FeatureNames),
		FeatureNames:  m.FeatureNames(),
		SchemaVersion: features.SchemaVersion,
	}
}

// Score returns the probability that the vector describes a malicious URL.
func (m *Model) Score(v features.Vector) (float64, error) {
	if !slices.Equal(v.Names, m.artifact.FeatureNames) || len(v.Values) != len(v.Names) {
		return 0, fmt.Errorf("%w: got %d features, model expects %d",
			ErrShapeMismatch, len(v.Values), len(m.artifact.FeatureNames))
	}

	var p float64
	switch m.artifact.Kind {
	case KindLogistic:
		z := m.artifact.Logistic.Intercept
		for i, c := range m.artifact.Logistic.Coefficients {
			z += c * v.Values[i]
		}
		p = 1 / (1 + math.Exp(-z))
	case KindForest:
		for _, t := range m.artifact.Forest.Trees {
			p += t.predict(v.Values)
		}
		p /= float64(len(m.artifact.Forest.Trees))
	}

	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, ErrNonFinite
	}
	return p, nil
}

// Explain ranks features by importance times magnitude and returns the top n.
// It is descriptive only and plays no part in Score.
func (m *Model) Explain(v features.Vector, n int) []Contribution {
	imp := m.artifact.Importances
	if len(imp) != len(v.Values) || n <= 0 {
		return nil
	}

	out := make([]Contribution, 0, len(v.Values))
	for i, val := range v.Values {
		w := imp[i] * math.Abs(val)
		if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		out = append(out, Contribution{
			Feature:    v.Names[i],
			Value:      val,
			Importance: imp[i],
			Weight:     w,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
