package canonical

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResolveCache caches raw → resolved URL pairs across batches. Lookups
// are best effort; a miss or a cache error just means a network call.
type ResolveCache interface {
	Get(ctx context.Context, rawURL string) (string, bool)
	Set(ctx context.Context, rawURL, resolvedURL string)
}

// ResolverConfig holds redirect resolver settings.
type ResolverConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxRedirects int
}

// Resolver resolves a URL to its final destination. Known tracking
// wrappers are unwrapped from their query string without any network
// traffic; everything else is followed over HTTP with a hard timeout.
//
// Resolve never fails hard: on any network problem it hands back the
// original URL together with the error so the caller can degrade softly.
type Resolver struct {
	transport    http.RoundTripper
	timeout      time.Duration
	userAgent    string
	maxRedirects int
	cache        ResolveCache
	logger       *slog.Logger
}

// NewResolver creates a Resolver. cache may be nil to disable caching.
func NewResolver(cfg ResolverConfig, cache ResolveCache, logger *slog.Logger) *Resolver {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "LinkSignal/1.0 (link resolver)"
	}
	return &Resolver{
		transport:    http.DefaultTransport,
		timeout:      cfg.Timeout,
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
		cache:        cache,
		logger:       logger,
	}
}

// Resolve returns the final destination of rawURL plus the chain of
// intermediate URLs it passed through. The returned error is a condition
// report, not a hard failure: the first return value is always usable and
// falls back to rawURL.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, []string, error) {
	// Fast path: unwrap known wrappers without touching the network.
	if dest, ok := ExtractFinal(rawURL); ok {
		r.logger.Debug("extracted embedded destination", "url", rawURL, "destination", dest)
		return dest, []string{rawURL}, nil
	}

	if r.cache != nil {
		if resolved, ok := r.cache.Get(ctx, rawURL); ok {
			return resolved, nil, nil
		}
	}

	final, chain, err := r.follow(ctx, http.MethodHead, rawURL)
	if err != nil {
		final, chain, err = r.follow(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		r.logger.Debug("redirect resolution failed", "url", rawURL, "error", err)
		return rawURL, nil, err
	}

	if r.cache != nil {
		r.cache.Set(ctx, rawURL, final)
	}
	return final, chain, nil
}

// follow issues one request with the given method, following redirects up
// to the configured limit, and returns the final URL and the chain of
// intermediate hops.
func (r *Resolver) follow(ctx context.Context, method, rawURL string) (string, []string, error) {
	var chain []string
	client := &http.Client{
		Transport: r.transport,
		Timeout:   r.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= r.maxRedirects {
				return fmt.Errorf("stopped after %d redirects", r.maxRedirects)
			}
			chain = append(chain, req.URL.String())
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("%s %s: unexpected status %d", method, rawURL, resp.StatusCode)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return final, chain, nil
}

// hostOf extracts the lowercase hostname from a URL string, or "" when it
// cannot be parsed.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
