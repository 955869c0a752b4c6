package classifier

import (
	"errors"
	"fmt"
	"math"
)

// Supported model kinds.
const (
	KindLogistic = "logistic"
	KindForest   = "forest"
)

// Artifact is the on-disk form of a trained model, exported by the training
// job as JSON.
type Artifact struct {
	Version      string    `json:"version"`
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names"`
	Importances  []float64 `json:"feature_importances"`

	Logistic *LogisticParams `json:"logistic,omitempty"`
	Forest   *ForestParams   `json:"forest,omitempty"`
}

// LogisticParams is a fitted logistic regression.
type LogisticParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// ForestParams is a fitted ensemble of binary decision trees whose leaves
// hold the positive-class probability.
type ForestParams struct {
	Trees []Tree `json:"trees"`
}

// Tree is stored as a flat node list; node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split (x[Feature] <= Threshold goes Left) or a leaf.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

var errInvalidArtifact = errors.New("invalid model artifact")

func (a *Artifact) validate() error {
	n := len(a.FeatureNames)
	if n == 0 {
		return fmt.Errorf("%w: no feature_names", errInvalidArtifact)
	}
	seen := make(map[string]bool, n)
	for _, name := range a.FeatureNames {
		if name == "" || seen[name] {
			return fmt.Errorf("%w: empty or duplicate feature name %q", errInvalidArtifact, name)
		}
		seen[name] = true
	}
	if len(a.Importances) != 0 && len(a.Importances) != n {
		return fmt.Errorf("%w: %d importances for %d features", errInvalidArtifact, len(a.Importances), n)
	}

	switch a.Kind {
	case KindLogistic:
		if a.Logistic == nil {
			return fmt.Errorf("%w: kind logistic without parameters", errInvalidArtifact)
		}
		if len(a.Logistic.Coefficients) != n {
			return fmt.Errorf("%w: %d coefficients for %d features", errInvalidArtifact, len(a.Logistic.Coefficients), n)
		}
		for _, c := range append([]float64{a.Logistic.Intercept}, a.Logistic.Coefficients...) {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("%w: non-finite coefficient", errInvalidArtifact)
			}
		}
	case KindForest:
		if a.Forest == nil || len(a.Forest.Trees) == 0 {
			return fmt.Errorf("%w: kind forest without trees", errInvalidArtifact)
		}
		for i, t := range a.Forest.Trees {
			if err := t.validate(n); err != nil {
				return fmt.Errorf("%w: tree %d: %v", errInvalidArtifact, i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", errInvalidArtifact, a.Kind)
	}
	return nil
}

// validate checks indices and requires children to come after their parent,
// which rules out cycles.
func (t Tree) validate(features int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, nd := range t.Nodes {
		if nd.Leaf {
			if nd.Value < 0 || nd.Value > 1 || math.IsNaN(nd.Value) {
				return fmt.Errorf("node %d: leaf value %v outside [0,1]", i, nd.Value)
			}
			continue
		}
		if nd.Feature < 0 || nd.Feature >= features {
			return fmt.Errorf("node %d: feature index %d out of range", i, nd.Feature)
		}
		for _, child := range []int{nd.Left, nd.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: bad child index %d", i, child)
			}
		}
	}
	return nil
}

func (t Tree) predict(x []float64) float64 {
	i := 0
	for {
		nd := t.Nodes[i]
		if nd.Leaf {
			return nd.Value
		}
		if x[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
}
