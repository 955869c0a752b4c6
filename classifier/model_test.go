package classifier

import (
	"errors"
	"math"
	"testing"
	"time"

	"phisheye/domainintel"
	"phisheye/features"
	"phisheye/lexical"
)

var fixedTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestBundledModelMatchesSchema(t *testing.T) {
	m, err := Load("../models/url-v1.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := features.CheckSchema(m.FeatureNames(), features.SchemaV1); err != nil {
		t.Fatalf("self-check: %v", err)
	}

	e := lexical.NewExtractor(lexical.DefaultLists())
	rec := domainintel.Sentinel("example.com", domainintel.StatusTimedOut, 3, fixedTime)
	for _, url := range []string{
		"https://github.com/scikit-learn/scikit-learn",
		"http://secure-paypal-account-verify.com/login",
		"",
	} {
		v := features.Assemble(e.Extract(url), rec, features.SchemaV1)
		p, err := m.Score(v)
		if err != nil {
			t.Fatalf("Score(%q): %v", url, err)
		}
		if p < 0 || p > 1 {
			t.Errorf("Score(%q) = %v, want within [0,1]", url, p)
		}
	}
}

func TestScoreRejectsShapeMismatch(t *testing.T) {
	m, err := Load("../models/url-v1.json")
	if err != nil {
		t.Fatal(err)
	}

	short := features.Vector{Names: []string{"url_length"}, Values: []float64{10}}
	if _, err := m.Score(short); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short vector: err = %v, want ErrShapeMismatch", err)
	}

	reordered := features.Assemble(features.Map{}, domainintel.DomainRecord{}, features.SchemaV1)
	reordered.Names[0], reordered.Names[1] = reordered.Names[1], reordered.Names[0]
	if _, err := m.Score(reordered); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("reordered vector: err = %v, want ErrShapeMismatch", err)
	}
}

func TestForestScore(t *testing.T) {
	m, err := Load("testdata/forest.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		values []float64
		want   float64
	}{
		{[]float64{0, 20}, (0.1 + 0.2) / 2},
		{[]float64{1, 20}, (0.9 + 0.2) / 2},
		{[]float64{1, 80}, (0.9 + 0.6) / 2},
	}
	for _, tt := range tests {
		v := features.Vector{Names: []string{"has_ip", "url_length"}, Values: tt.values}
		got, err := m.Score(v)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Score(%v) = %v, want %v", tt.values, got, tt.want)
		}
	}
}

func TestScoreNonFinite(t *testing.T) {
	m, err := Parse([]byte(`{"version":"t","kind":"logistic","feature_names":["a","b"],
		"logistic":{"intercept":0,"coefficients":[1,1]}}`))
	if err != nil {
		t.Fatal(err)
	}
	v := features.Vector{Names: []string{"a", "b"}, Values: []float64{math.Inf(1), math.Inf(-1)}}
	if _, err := m.Score(v); !errors.Is(err, ErrNonFinite) {
		t.Errorf("err = %v, want ErrNonFinite", err)
	}
}

func TestLoadRejectsBadArtifacts(t *testing.T) {
	tests := map[string]string{
		"not json":         `{`,
		"no features":      `{"kind":"logistic","feature_names":[],"logistic":{"coefficients":[]}}`,
		"duplicate name":   `{"kind":"logistic","feature_names":["a","a"],"logistic":{"coefficients":[1,1]}}`,
		"coef length":      `{"kind":"logistic","feature_names":["a","b"],"logistic":{"coefficients":[1]}}`,
		"missing params":   `{"kind":"logistic","feature_names":["a"]}`,
		"unknown kind":     `{"kind":"svm","feature_names":["a"]}`,
		"importance count": `{"kind":"logistic","feature_names":["a"],"feature_importances":[0.5,0.5],"logistic":{"coefficients":[1]}}`,
		"leaf out of range": `{"kind":"forest","feature_names":["a"],"forest":{"trees":[{"nodes":[{"leaf":true,"value":1.5}]}]}}`,
		"feature index":    `{"kind":"forest","feature_names":["a"],"forest":{"trees":[{"nodes":[{"feature":3,"threshold":1,"left":1,"right":2},{"leaf":true,"value":0.1},{"leaf":true,"value":0.2}]}]}}`,
	}
	for name, body := range tests {
		if _, err := Parse([]byte(body)); err == nil {
			t.Errorf("%s: Parse succeeded, want error", name)
		}
	}

	if _, err := Load("testdata/cyclic.json"); err == nil {
		t.Error("cyclic tree: Load succeeded, want error")
	}
	if _, err := Load("testdata/does-not-exist.json"); err == nil {
		t.Error("missing file: Load succeeded, want error")
	}
}

func TestExplainRanksByWeight(t *testing.T) {
	m, err := Load("testdata/forest.json")
	if err != nil {
		t.Fatal(err)
	}
	v := features.Vector{Names: []string{"has_ip", "url_length"}, Values: []float64{1, 40}}

	got := m.Explain(v, 5)
	if len(got) != 2 {
		t.Fatalf("got %d contributions, want 2", len(got))
	}
	if got[0].Feature != "url_length" || got[1].Feature != "has_ip" {
		t.Errorf("order = %s, %s; want url_length, has_ip", got[0].Feature, got[1].Feature)
	}
	if one := m.Explain(v, 1); len(one) != 1 {
		t.Errorf("Explain(n=1) returned %d entries", len(one))
	}
}
