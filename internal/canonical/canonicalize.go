package canonical

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"linksignal/internal/domain"
)

// Canonicalizer turns raw URLs into canonical link identities. The
// pipeline is: blacklist-check the raw URL (cheap, before any network
// cost) → resolve redirects → normalize → blacklist-check the canonical
// form (the resolved destination may differ from the submitted one) →
// extract domain and registrable base domain.
type Canonicalizer struct {
	resolver *Resolver
	logger   *slog.Logger
}

func NewCanonicalizer(resolver *Resolver, logger *slog.Logger) *Canonicalizer {
	return &Canonicalizer{resolver: resolver, logger: logger}
}

// Canonicalize resolves raw to its canonical identity, guarded by the
// given blacklist snapshot.
//
// Two error cases exist: domain.ErrBlacklisted when either form of the
// URL hits the deny-list, and domain.ErrInvalidURL when the input is not
// an absolute http(s) URL. A resolver failure is neither: the result
// carries CanonicalFailed status and the normalized original URL, and the
// caller is expected to flag the link for manual review.
func (c *Canonicalizer) Canonicalize(ctx context.Context, raw string, entries []domain.BlacklistEntry) (domain.CanonicalResult, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.CanonicalResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidURL, raw)
	}

	guard := NewGuard(entries)
	if guard.IsBlacklisted(raw) {
		return domain.CanonicalResult{}, domain.ErrBlacklisted
	}

	resolved, chain, resolveErr := c.resolver.Resolve(ctx, raw)

	canonical := Normalize(resolved)
	if resolveErr != nil {
		// Soft failure: fall back to the normalized original so the
		// link still gets a stable identity.
		canonical = Normalize(raw)
	}

	if guard.IsBlacklisted(canonical) {
		return domain.CanonicalResult{}, domain.ErrBlacklisted
	}

	host := hostOf(canonical)
	result := domain.CanonicalResult{
		CanonicalURL:  canonical,
		Domain:        host,
		BaseDomain:    BaseDomain(host),
		Status:        domain.CanonicalSuccess,
		RedirectChain: chain,
	}
	if resolveErr != nil {
		result.Status = domain.CanonicalFailed
		result.Error = resolveErr.Error()
	}
	return result, nil
}

// BaseDomain reduces a host to its registrable domain: the public-suffix
// list handles two-part TLDs such as co.uk or com.au, so
// "feeds.kottke.org" and "kottke.org" collapse to the same value. Used
// for a source's own-domain link exclusion.
func BaseDomain(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" {
		return ""
	}
	if base, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return base
	}
	return host
}
