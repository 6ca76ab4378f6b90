package domain

import "time"

// BlacklistType distinguishes domain-wide rules from single-URL rules.
type BlacklistType string

const (
	BlacklistDomain BlacklistType = "domain"
	BlacklistURL    BlacklistType = "url"
)

// BlacklistEntry is a deny rule checked during canonicalization. The core
// reads entries; writing them is an admin concern.
type BlacklistEntry struct {
	ID        string        `db:"id"`
	Type      BlacklistType `db:"entry_type"`
	Pattern   string        `db:"pattern"`
	CreatedAt time.Time     `db:"created_at"`
}
