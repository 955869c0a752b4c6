package vetting

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"phisheye/classifier"
	"phisheye/domainintel"
	"phisheye/features"
	"phisheye/lexical"
	"phisheye/scoring"
	"phisheye/signals"
)

// Scorer is the loaded classifier.
type Scorer interface {
	Score(v features.Vector) (float64, error)
	Explain(v features.Vector, n int) []classifier.Contribution
	Info() classifier.Info
}

// DomainResolver resolves registration data for a hostname. It must not
// block past ctx and must never fail.
type DomainResolver interface {
	Resolve(ctx context.Context, hostname string) domainintel.DomainRecord
}

// ContentProbe fetches page signals for a URL.
type ContentProbe interface {
	Probe(ctx context.Context, pageURL string) *signals.ContentSignals
}

// MailProbe checks a host's mail exchangers.
type MailProbe interface {
	Probe(ctx context.Context, host string) *signals.MailSignals
}

// Request is one URL to analyze.
type Request struct {
	URL            string                  `json:"url"`
	ContentSignals *signals.ContentSignals `json:"content_signals,omitempty"`
	Explain        bool                    `json:"explain,omitempty"`
}

// BatchResult is one entry of a batch response, in request order.
type BatchResult struct {
	Index  int             `json:"index"`
	URL    string          `json:"url"`
	Report *scoring.Report `json:"report,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// Options wires an Analyzer. Extractor, Resolver, Aggregator and Composer
// are required; Content and Mail are optional probes.
type Options struct {
	Extractor  *lexical.Extractor
	Resolver   DomainResolver
	Scorer     Scorer
	Aggregator *signals.Aggregator
	Composer   *scoring.Composer
	Content    ContentProbe
	Mail       MailProbe

	Schema         features.Schema
	RequestTimeout time.Duration
	TopFeatures    int
	MaxBatch       int
	BatchWorkers   int

	Logger *slog.Logger
	Now    func() time.Time
}

// Analyzer runs the full scoring pipeline for a URL.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer checks the wiring and fills defaults.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	switch {
	case opts.Extractor == nil:
		return nil, fmt.Errorf("analyzer: extractor is required")
	case opts.Resolver == nil:
		return nil, fmt.Errorf("analyzer: resolver is required")
	case opts.Aggregator == nil:
		return nil, fmt.Errorf("analyzer: aggregator is required")
	case opts.Composer == nil:
		return nil, fmt.Errorf("analyzer: composer is required")
	}
	if opts.Schema == nil {
		opts.Schema = features.SchemaV1
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	if opts.TopFeatures <= 0 {
		opts.TopFeatures = 5
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 50
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{opts: opts, logger: logger.With("component", "vetting")}, nil
}

// ModelInfo describes the loaded classifier, if any.
func (a *Analyzer) ModelInfo() (classifier.Info, bool) {
	if a.opts.Scorer == nil {
		return classifier.Info{}, false
	}
	return a.opts.Scorer.Info(), true
}

// CachedDomains reports the resolver cache size when the resolver exposes it.
func (a *Analyzer) CachedDomains() int {
	if c, ok := a.opts.Resolver.(interface{ CacheSize() int }); ok {
		return c.CacheSize()
	}
	return 0
}

// Analyze scores one URL. Registry and probe failures degrade into report
// fields; only a missing or failing classifier is an error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*scoring.Report, error) {
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return nil, invalidRequest("url is required")
	}
	if a.opts.Scorer == nil {
		return nil, &Error{Code: CodeClassifierUnavailable, Status: http.StatusServiceUnavailable, Err: ErrClassifierUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.RequestTimeout)
	defer cancel()

	host := lexical.Hostname(raw)

	var (
		lex     features.Map
		rec     domainintel.DomainRecord
		content *signals.ContentSignals
		mail    *signals.MailSignals
	)
	if req.ContentSignals != nil {
		c := *req.ContentSignals
		c.Source = "request"
		content = &c
	}

	// --- PARALLEL OPERATIONS ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lex = a.opts.Extractor.Extract(raw)
		return nil
	})

	g.Go(func() error {
		rec = a.opts.Resolver.Resolve(gctx, host)
		return nil
	})

	if content == nil && a.opts.Content != nil && host != "" {
		g.Go(func() error {
			content = a.opts.Content.Probe(gctx, lexical.Normalize(raw))
			return nil
		})
	}

	if a.opts.Mail != nil && host != "" {
		g.Go(func() error {
			mail = a.opts.Mail.Probe(gctx, host)
			return nil
		})
	}

	_ = g.Wait()

	vec := features.Assemble(lex, rec, a.opts.Schema)
	p, err := a.opts.Scorer.Score(vec)
	if err != nil {
		a.logger.Error("scoring failed", "url", raw, "error", err)
		return nil, &Error{Code: CodeScoringFailed, Status: http.StatusInternalServerError, Err: err}
	}

	aux := a.opts.Aggregator.Aggregate(host, rec, content, mail)
	report := a.opts.Composer.Compose(p, rec, aux)
	report.URL = raw
	report.FeaturesUsed = vec.Len()
	report.ModelVersion = a.opts.Scorer.Info().Version
	report.Timestamp = a.opts.Now().Format(time.RFC3339)
	if req.Explain {
		report.TopFeatures = a.opts.Scorer.Explain(vec, a.opts.TopFeatures)
	}

	a.logger.Info("analysis completed",
		"url", raw,
		"verdict", report.Verdict,
		"threat_score", report.ThreatScore,
		"domain_status", rec.Status,
		"trusted", aux.Trusted,
	)
	return &report, nil
}

// AnalyzeBatch scores several URLs with bounded concurrency. Per-URL
// failures are reported in place; the batch itself fails only on bad input.
// The whole batch shares one request timeout: items still resolving at the
// deadline get TransientError domain records, and items not yet started run
// with an expired context and do the same.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	if len(reqs) == 0 {
		return nil, invalidRequest("urls must not be empty")
	}
	if len(reqs) > a.opts.MaxBatch {
		return nil, &Error{
			Code:   CodeBatchTooLarge,
			Status: http.StatusBadRequest,
			Err:    fmt.Errorf("batch of %d exceeds the limit of %d", len(reqs), a.opts.MaxBatch),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.RequestTimeout)
	defer cancel()

	results := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.BatchWorkers)

	for i, req := range reqs {
		g.Go(func() error {
			res := BatchResult{Index: i, URL: req.URL}
			report, err := a.Analyze(gctx, req)
			if err != nil {
				_, body := errorBody(err)
				res.Error = &body
			} else {
				res.Report = report
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
