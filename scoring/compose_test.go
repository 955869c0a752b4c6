package scoring

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"phisheye/domainintel"
	"phisheye/signals"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(DefaultWeights(), DefaultThresholds(), DefaultHighProbability)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func resolvedRecord(host string, age int) domainintel.DomainRecord {
	rec := domainintel.Sentinel(host, domainintel.StatusResolved, 1, now)
	rec.AgeDays = age
	return rec
}

func TestComposeScoreIsMonotonicAndBounded(t *testing.T) {
	c := newComposer(t)
	rec := resolvedRecord("example.com", 400)

	risks := []float64{0, 0.5, 1}
	prev := -1
	for pi := 0; pi <= 20; pi++ {
		p := float64(pi) / 20
		for _, age := range risks {
			for _, content := range risks {
				r := c.Compose(p, rec, signals.Set{DomainAgeRisk: age, ContentRisk: content})
				if r.ThreatScore < 0 || r.ThreatScore > 100 {
					t.Fatalf("score %d out of range", r.ThreatScore)
				}
			}
		}
		r := c.Compose(p, rec, signals.Set{DomainAgeRisk: 0.5})
		if r.ThreatScore < prev {
			t.Errorf("score decreased from %d to %d at p=%v", prev, r.ThreatScore, p)
		}
		prev = r.ThreatScore
	}

	for _, age := range risks {
		lo := c.Compose(0.4, rec, signals.Set{DomainAgeRisk: age})
		hi := c.Compose(0.4, rec, signals.Set{DomainAgeRisk: age, ContentRisk: 1})
		if hi.ThreatScore < lo.ThreatScore {
			t.Errorf("content risk lowered the score: %d -> %d", lo.ThreatScore, hi.ThreatScore)
		}
	}
}

func TestComposeClampsInputs(t *testing.T) {
	c := newComposer(t)
	rec := resolvedRecord("example.com", 400)
	tests := []struct {
		name string
		p    float64
		aux  signals.Set
		want int
	}{
		{"negative probability", -3, signals.Set{}, 0},
		{"probability above one", 7, signals.Set{}, 50},
		{"NaN probability fails closed", math.NaN(), signals.Set{}, 50},
		{"everything maxed", 1, signals.Set{DomainAgeRisk: 1, ContentRisk: 1}, 100},
		{"risks out of range", 0, signals.Set{DomainAgeRisk: 9, ContentRisk: -2}, 30},
	}
	for _, tt := range tests {
		r := c.Compose(tt.p, rec, tt.aux)
		if r.ThreatScore != tt.want {
			t.Errorf("%s: score = %d, want %d", tt.name, r.ThreatScore, tt.want)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("%s: confidence %v out of range", tt.name, r.Confidence)
		}
	}
}

func TestVerdictThresholds(t *testing.T) {
	c := newComposer(t)
	tests := []struct {
		score int
		want  Verdict
	}{
		{0, Safe}, {30, Safe}, {31, Suspicious}, {70, Suspicious}, {71, Malicious}, {100, Malicious},
	}
	for _, tt := range tests {
		if got := c.verdict(tt.score); got != tt.want {
			t.Errorf("verdict(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}

	custom, err := NewComposer(DefaultWeights(), Thresholds{Malicious: 50, Suspicious: 10}, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if got := custom.verdict(51); got != Malicious {
		t.Errorf("custom verdict(51) = %s, want MALICIOUS", got)
	}
}

func TestComposeTrustedOverride(t *testing.T) {
	c := newComposer(t)
	rec := domainintel.Sentinel("github.com", domainintel.StatusTimedOut, 3, now)
	aux := signals.Set{Host: "github.com", Trusted: true, DomainAgeRisk: 1, ContentRisk: 1}

	r := c.Compose(0.9, rec, aux)
	if r.ThreatScore != 45 {
		t.Errorf("score = %d, want 45 (classifier share only)", r.ThreatScore)
	}
	if r.Breakdown.DomainAgeComponent != 0 || r.Breakdown.ContentComponent != 0 {
		t.Errorf("override left risk components: %+v", r.Breakdown)
	}
	last := r.ReasoningHighlights[len(r.ReasoningHighlights)-1]
	if !strings.HasPrefix(last, "TRUSTED:") {
		t.Errorf("last highlight = %q, want trusted override", last)
	}
	for _, h := range r.ReasoningHighlights {
		if strings.Contains(h, "unavailable") {
			t.Errorf("age highlight not suppressed for trusted host: %q", h)
		}
	}
}

func TestHighlightOrder(t *testing.T) {
	c := newComposer(t)
	rec := resolvedRecord("paypa1.com", 3)
	aux := signals.Set{
		Host:          "paypa1.com",
		DomainAgeRisk: 1,
		ContentRisk:   1,
		Content:       &signals.ContentSignals{FormActionIsExternal: true, FormActionHost: "collect.example"},
		Mail:          &signals.MailSignals{Checked: true},
		Lookalike:     "paypal.com",
	}

	got := c.Compose(0.95, rec, aux).ReasoningHighlights
	prefixes := []string{
		"CRITICAL: Domain paypa1.com is brand new (3 days old)",
		"CRITICAL: A form on this page submits your data to an external domain (collect.example)",
		"HIGH RISK: Domain has no mail server",
		"HIGH RISK: paypa1.com looks like an imitation of the trusted domain paypal.com",
	}
	if len(got) != len(prefixes) {
		t.Fatalf("got %d highlights, want %d:\n%s", len(got), len(prefixes), strings.Join(got, "\n"))
	}
	for i, p := range prefixes {
		if !strings.HasPrefix(got[i], p) {
			t.Errorf("highlight %d = %q, want prefix %q", i, got[i], p)
		}
	}
}

func TestHighlightRules(t *testing.T) {
	c := newComposer(t)
	tests := []struct {
		name string
		p    float64
		rec  domainintel.DomainRecord
		aux  signals.Set
		want []string
	}{
		{
			name: "nothing fires",
			p:    0.2,
			rec:  resolvedRecord("example.com", 5000),
			want: []string{NoIndicators},
		},
		{
			name: "young but not new",
			p:    0.2,
			rec:  resolvedRecord("example.com", 45),
			aux:  signals.Set{DomainAgeRisk: 0.5},
			want: []string{"WARNING: Domain example.com is only 45 days old."},
		},
		{
			name: "model alone",
			p:    0.93,
			rec:  resolvedRecord("example.com", 5000),
			want: []string{"HIGH RISK: URL structure matches known phishing patterns (model probability 0.93)."},
		},
		{
			name: "model suppressed by a stronger reason",
			p:    0.93,
			rec:  domainintel.Sentinel("example.com", domainintel.StatusNotFound, 1, now),
			aux:  signals.Set{DomainAgeRisk: 1},
			want: []string{"HIGH RISK: Registration data for example.com is unavailable (domain not found in the registry); an unknown domain age is treated as new."},
		},
		{
			name: "resolved without creation date",
			p:    0.1,
			rec:  resolvedRecord("example.com", domainintel.Unknown),
			aux:  signals.Set{DomainAgeRisk: 1},
			want: []string{"HIGH RISK: The registry did not report a creation date for example.com; its age is treated as new."},
		},
		{
			name: "unchecked mail probe is silent",
			p:    0.1,
			rec:  resolvedRecord("example.com", 5000),
			aux:  signals.Set{Mail: &signals.MailSignals{}},
			want: []string{NoIndicators},
		},
	}
	for _, tt := range tests {
		got := c.Compose(tt.p, tt.rec, tt.aux).ReasoningHighlights
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestComposeReportFields(t *testing.T) {
	c := newComposer(t)
	created := now.AddDate(-1, 0, 0)
	rec := resolvedRecord("example.com", 365)
	rec.CreatedAt = &created

	r := c.Compose(0.12345, rec, signals.Set{})
	if r.Confidence != 0.123 {
		t.Errorf("confidence = %v, want 0.123", r.Confidence)
	}
	if r.Verdict != Safe || r.RecommendedAction != "Allow access" {
		t.Errorf("verdict/action = %s/%q", r.Verdict, r.RecommendedAction)
	}
	if !r.Success {
		t.Error("success = false")
	}
	if r.Domain.CreatedOn != "2024-06-01" || r.Domain.LookupFailed {
		t.Errorf("domain summary = %+v", r.Domain)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewComposer(Weights{ML: 0.5, DomainAge: 0.5, Content: 0.5}, DefaultThresholds(), 0.9); err == nil {
		t.Error("weights summing to 1.5 accepted")
	}
	if _, err := NewComposer(Weights{ML: 1.2, DomainAge: -0.2}, DefaultThresholds(), 0.9); err == nil {
		t.Error("negative weight accepted")
	}
	if _, err := NewComposer(DefaultWeights(), Thresholds{Malicious: 30, Suspicious: 70}, 0.9); err == nil {
		t.Error("inverted thresholds accepted")
	}
	if _, err := NewComposer(DefaultWeights(), DefaultThresholds(), 0); err == nil {
		t.Error("zero high probability accepted")
	}
	if _, err := NewComposer(Weights{ML: 0.6, DomainAge: 0.3, Content: 0.1}, DefaultThresholds(), 0.8); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
