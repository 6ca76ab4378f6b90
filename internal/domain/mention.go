package domain

import (
	"time"

	"github.com/lib/pq"
)

// Mention is evidence that a source pointed at a link at a point in time.
// At most one row exists per (link, source) pair; a re-sighting refreshes
// SeenAt in place.
type Mention struct {
	ID       string    `db:"id"`
	LinkID   string    `db:"link_id"`
	SourceID string    `db:"source_id"`
	SeenAt   time.Time `db:"seen_at"`
}

// MentionFacts is a mention joined with the source attributes the scoring
// engine needs. Rows come straight out of a mentions/sources join.
type MentionFacts struct {
	SourceID         string         `db:"source_id"`
	SeenAt           time.Time      `db:"seen_at"`
	Tier             Tier           `db:"tier"`
	TrustScore       int            `db:"trust_score"`
	ShowOnDashboard  bool           `db:"show_on_dashboard"`
	SourceBaseDomain string         `db:"base_domain"`
	InternalDomains  pq.StringArray `db:"internal_domains"`
	IncludeOwnLinks  bool           `db:"include_own_links"`
}

// SelfLink reports whether the mention points back at the mentioning
// source's own domain and the source does not opt in to counting those.
func (m *MentionFacts) SelfLink(linkBaseDomain string) bool {
	if m.IncludeOwnLinks || linkBaseDomain == "" {
		return false
	}
	src := Source{BaseDomain: m.SourceBaseDomain, InternalDomains: m.InternalDomains}
	return src.OwnsDomain(linkBaseDomain)
}
