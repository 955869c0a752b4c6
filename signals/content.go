package signals

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"

	"phisheye/domainintel"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes = 1 << 20
)

// ContentOptions configures a ContentProber.
type ContentOptions struct {
	Timeout      time.Duration
	SkipChromedp bool
	ChromePath   string
	Logger       *slog.Logger
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
	// Resolver resolves page hosts for the address check; nil uses
	// net.DefaultResolver.
	Resolver IPResolver
	// AllowPrivate disables the private and loopback address checks.
	AllowPrivate bool
}

// ContentProber fetches a page and inspects its forms. HTTP first (fast),
// headless Chrome as fallback for pages that build their forms in JS.
type ContentProber struct {
	client       *http.Client
	timeout      time.Duration
	skipChromedp bool
	chromePath   string
	resolver     IPResolver
	allowPrivate bool
	logger       *slog.Logger
}

// NewContentProber creates a prober.
func NewContentProber(opts ContentOptions) *ContentProber {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		dialer := &net.Dialer{Timeout: opts.Timeout}
		if !opts.AllowPrivate {
			dialer.Control = guardedDialControl
		}
		client = &http.Client{
			Timeout:   opts.Timeout,
			Transport: &http.Transport{DialContext: dialer.DialContext},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentProber{
		client:       client,
		timeout:      opts.Timeout,
		skipChromedp: opts.SkipChromedp,
		chromePath:   opts.ChromePath,
		resolver:     opts.Resolver,
		allowPrivate: opts.AllowPrivate,
		logger:       logger.With("component", "content"),
	}
}

// Probe never fails; problems are reported in FetchError. Pages on private
// or internal addresses are not fetched.
func (p *ContentProber) Probe(ctx context.Context, pageURL string) *ContentSignals {
	if !p.allowPrivate {
		if err := checkTarget(ctx, p.resolver, pageURL); err != nil {
			p.logger.Warn("content probe refused", "url", pageURL, "error", err)
			return &ContentSignals{Source: "http", FetchError: err.Error()}
		}
	}

	sig, forms, err := p.probeHTTP(ctx, pageURL)
	if err == nil && forms > 0 {
		return sig
	}

	if p.skipChromedp {
		if err != nil {
			sig.FetchError = err.Error()
		}
		return sig
	}

	p.logger.Debug("http probe found no forms, rendering", "url", pageURL, "error", err)
	rendered, rerr := p.probeChromedp(ctx, pageURL)
	if rerr != nil {
		if err != nil {
			sig.FetchError = err.Error()
		} else {
			sig.FetchError = rerr.Error()
		}
		return sig
	}
	return rendered
}

func (p *ContentProber) probeHTTP(ctx context.Context, pageURL string) (*ContentSignals, int, error) {
	sig := &ContentSignals{Source: "http"}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return sig, 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return sig, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return sig, 0, fmt.Errorf("http status %d", resp.StatusCode)
	}

	forms, err := analyzeForms(resp.Request.URL, io.LimitReader(resp.Body, maxPageBytes), sig)
	return sig, forms, err
}

// probeChromedp renders the page in headless Chrome and analyzes the DOM.
func (p *ContentProber) probeChromedp(ctx context.Context, pageURL string) (*ContentSignals, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout+5*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.UserAgent(userAgent),
	)
	if p.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var doc, finalURL string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &doc),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	base, err := url.Parse(finalURL)
	if err != nil || base.Host == "" {
		base, _ = url.Parse(pageURL)
	}
	sig := &ContentSignals{Source: "chromedp"}
	if _, err := analyzeForms(base, strings.NewReader(doc), sig); err != nil {
		return nil, err
	}
	return sig, nil
}

//
// FORM ANALYSIS
//

// analyzeForms walks the document and records password inputs and forms
// that submit to a different registrable domain than base. It returns the
// number of forms seen.
func analyzeForms(base *url.URL, r io.Reader, sig *ContentSignals) (int, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}

	pageSite := domainintel.RegistrableDomain(domainintel.NormalizeHostname(base.Hostname()))
	forms := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				forms++
				host := actionHost(base, attr(n, "action"))
				if host != "" && domainintel.RegistrableDomain(host) != pageSite {
					sig.FormActionIsExternal = true
					if sig.FormActionHost == "" {
						sig.FormActionHost = host
					}
				}
			case "input":
				if strings.EqualFold(attr(n, "type"), "password") {
					sig.HasPasswordForm = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return forms, nil
}

// actionHost resolves a form action against the page URL and returns its
// normalized host, or "" for same-document and non-HTTP actions.
func actionHost(base *url.URL, action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return ""
	}
	ref, err := url.Parse(action)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return domainintel.NormalizeHostname(u.Hostname())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
