package domain

import "time"

// CanonicalStatus records whether redirect resolution confirmed a final
// destination for a link.
type CanonicalStatus string

const (
	CanonicalSuccess CanonicalStatus = "success"
	CanonicalFailed  CanonicalStatus = "failed"
)

// Link is the canonical identity of a piece of content. Two raw URLs that
// canonicalize to the same string map to the same Link row.
type Link struct {
	ID                string          `db:"id"`
	CanonicalURL      string          `db:"canonical_url"`
	OriginalURL       string          `db:"original_url"` // first-seen raw form
	Domain            string          `db:"domain"`
	BaseDomain        string          `db:"base_domain"`
	Title             *string         `db:"title"`
	Description       *string         `db:"description"`
	ImageURL          *string         `db:"image_url"`
	Author            *string         `db:"author"`
	PublishedAt       *time.Time      `db:"published_at"`
	CanonicalStatus   CanonicalStatus `db:"canonical_status"`
	CanonicalError    *string         `db:"canonical_error"`
	NeedsManualReview bool            `db:"needs_manual_review"`
	FirstSeenAt       time.Time       `db:"first_seen_at"`
	LastSeenAt        time.Time       `db:"last_seen_at"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}
