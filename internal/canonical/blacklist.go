package canonical

import (
	"net/url"
	"strings"

	"linksignal/internal/domain"
)

// Guard checks URLs against a deny-list snapshot. It is built per batch
// from injected entries so the core never holds ambient registry state.
type Guard struct {
	domains map[string]struct{}
	urls    map[string]struct{}
}

// NewGuard indexes a blacklist snapshot for lookup. Domain patterns are
// stored lowercased; a leading www. on the pattern is ignored so that
// "www.spam.com" and "spam.com" behave the same.
func NewGuard(entries []domain.BlacklistEntry) *Guard {
	g := &Guard{
		domains: make(map[string]struct{}, len(entries)),
		urls:    make(map[string]struct{}),
	}
	for _, e := range entries {
		switch e.Type {
		case domain.BlacklistDomain:
			d := strings.ToLower(strings.TrimPrefix(e.Pattern, "www."))
			if d != "" {
				g.domains[d] = struct{}{}
			}
		case domain.BlacklistURL:
			g.urls[e.Pattern] = struct{}{}
		}
	}
	return g
}

// IsBlacklisted reports whether raw is denied. Checks run in order: exact
// domain match, www-prefixed domain match, exact full-URL match. Input
// that cannot be parsed is treated as blacklisted (fail closed).
func (g *Guard) IsBlacklisted(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return true
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := g.domains[host]; ok {
		return true
	}
	if _, ok := g.domains[strings.TrimPrefix(host, "www.")]; ok {
		return true
	}
	if _, ok := g.urls[raw]; ok {
		return true
	}
	return false
}
