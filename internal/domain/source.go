package domain

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// SourceKind identifies how a source delivers candidate URLs.
type SourceKind string

const (
	SourceKindRSS        SourceKind = "rss"
	SourceKindNewsletter SourceKind = "newsletter"
	SourceKindManual     SourceKind = "manual"
)

// Tier is the ordinal trust category of a source. TIER_1 is the highest.
type Tier string

const (
	Tier1 Tier = "TIER_1"
	Tier2 Tier = "TIER_2"
	Tier3 Tier = "TIER_3"
	Tier4 Tier = "TIER_4"
)

// DefaultTrustScore is used when a source has no explicit trust score.
const DefaultTrustScore = 5

type Source struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Kind              SourceKind     `db:"kind"`
	FeedURL           *string        `db:"feed_url"`
	Active            bool           `db:"active"`
	Tier              Tier           `db:"tier"`
	TrustScore        int            `db:"trust_score"` // 1-10
	ShowOnDashboard   bool           `db:"show_on_dashboard"`
	BaseDomain        string         `db:"base_domain"`
	InternalDomains   pq.StringArray `db:"internal_domains"`
	IncludeOwnLinks   bool           `db:"include_own_links"`
	LastError         *string        `db:"last_error"`
	ConsecutiveErrors int            `db:"consecutive_errors"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// OwnsDomain reports whether baseDomain belongs to the source itself,
// either as its base domain or one of its declared internal domains.
func (s *Source) OwnsDomain(baseDomain string) bool {
	if baseDomain == "" {
		return false
	}
	if strings.EqualFold(s.BaseDomain, baseDomain) {
		return true
	}
	for _, d := range s.InternalDomains {
		if strings.EqualFold(d, baseDomain) {
			return true
		}
	}
	return false
}
