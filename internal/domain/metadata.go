package domain

import "time"

// LinkMetadata carries best-effort page metadata destined for a Link.
// Nil fields are unknown; writes to an existing link only ever fill gaps,
// they never replace a present value.
type LinkMetadata struct {
	Title       *string
	Description *string
	ImageURL    *string
	Author      *string
	PublishedAt *time.Time
}

// Empty reports whether no field carries a value.
func (m LinkMetadata) Empty() bool {
	return m.Title == nil && m.Description == nil && m.ImageURL == nil &&
		m.Author == nil && m.PublishedAt == nil
}
