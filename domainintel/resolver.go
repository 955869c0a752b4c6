package domainintel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options configures a Resolver.
type Options struct {
	// Timeout bounds a single registry attempt. Backoff waits come out of
	// the overall Timeout*(1+MaxRetries) budget, so later attempts can get
	// less than Timeout.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Backoff is the pause between attempts.
	Backoff time.Duration
	// RateLimitBackoff replaces Backoff after a RateLimited attempt.
	RateLimitBackoff time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultOptions mirrors the production configuration defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:          5 * time.Second,
		MaxRetries:       2,
		Backoff:          time.Second,
		RateLimitBackoff: 3 * time.Second,
	}
}

// Resolver turns hostnames into DomainRecords. Every outcome is cached for
// the life of the process and concurrent callers for the same hostname share
// one in-flight lookup.
type Resolver struct {
	registry Registry
	opts     Options
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]DomainRecord
	group singleflight.Group
}

// NewResolver creates a resolver over registry.
func NewResolver(registry Registry, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = opts.Backoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry: registry,
		opts:     opts,
		logger:   logger.With("component", "domainintel"),
		cache:    make(map[string]DomainRecord),
	}
}

// Budget is the longest a single lookup may take, retries included.
func (r *Resolver) Budget() time.Duration {
	return r.opts.Timeout * time.Duration(1+r.opts.MaxRetries)
}

// Resolve returns the DomainRecord for hostname. It never fails: every
// failure mode is expressed through the record's Status. If ctx ends before
// the lookup does, the caller gets an uncached TransientError record while
// the lookup finishes in the background and populates the cache.
func (r *Resolver) Resolve(ctx context.Context, hostname string) DomainRecord {
	host := NormalizeHostname(hostname)
	if host == "" {
		return Sentinel(hostname, StatusTransientError, 0, r.opts.Now())
	}

	if rec, ok := r.Cached(host); ok {
		return rec
	}

	if IsIPLiteral(host) {
		rec := Sentinel(host, StatusTransientError, 0, r.opts.Now())
		r.store(rec)
		return rec
	}

	ch := r.group.DoChan(host, func() (any, error) {
		if rec, ok := r.Cached(host); ok {
			return rec, nil
		}
		rec := r.lookup(context.WithoutCancel(ctx), host)
		r.store(rec)
		return rec, nil
	})

	select {
	case res := <-ch:
		return res.Val.(DomainRecord)
	case <-ctx.Done():
		r.logger.Warn("caller gave up before lookup finished", "host", host, "error", ctx.Err())
		return Sentinel(host, StatusTransientError, 0, r.opts.Now())
	}
}

// Cached returns the cached record for an already normalized hostname.
func (r *Resolver) Cached(host string) (DomainRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.cache[host]
	return rec, ok
}

// CacheSize reports how many hostnames have a cached record.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) store(rec DomainRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[rec.Hostname]; !ok {
		r.cache[rec.Hostname] = rec
	}
}

// lookup runs the retry loop for one hostname inside the overall budget.
func (r *Resolver) lookup(parent context.Context, host string) DomainRecord {
	ctx, cancel := context.WithTimeout(parent, r.Budget())
	defer cancel()

	query := RegistrableDomain(host)
	attempts := 0
	var last Status
	mixed := false

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		attempts++

		reg, err := r.attempt(ctx, query)
		status := Classify(err)
		if status == StatusResolved {
			rec := recordFrom(host, reg, attempts, r.opts.Now())
			r.logger.Debug("whois resolved", "host", host, "query", query, "age_days", rec.AgeDays, "attempts", attempts)
			return rec
		}

		if attempts > 1 && status != last {
			mixed = true
		}
		last = status
		r.logger.Warn("whois attempt failed", "host", host, "query", query,
			"attempt", attempts, "status", status, "error", err)

		if !retryable(status) || attempt == r.opts.MaxRetries {
			break
		}

		wait := r.opts.Backoff
		if status == StatusRateLimited {
			wait = r.opts.RateLimitBackoff
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	if last == "" {
		last = StatusTimedOut
	}
	final := last
	if mixed {
		final = StatusTransientError
	}
	return Sentinel(host, final, attempts, r.opts.Now())
}

// attempt runs one registry call raced against its own deadline so a client
// that ignores ctx still cannot hold the lookup past Timeout.
func (r *Resolver) attempt(ctx context.Context, domain string) (Registration, error) {
	actx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	type result struct {
		reg Registration
		err error
	}
	done := make(chan result, 1)
	go func() {
		reg, err := r.registry.Lookup(actx, domain)
		done <- result{reg, err}
	}()

	select {
	case res := <-done:
		return res.reg, res.err
	case <-actx.Done():
		return Registration{}, actx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
