package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidURL  = errors.New("invalid url")
	ErrBlacklisted = errors.New("url is blacklisted")

	// ErrCanonicalConflict is returned when re-canonicalization resolves a
	// link to a canonical URL already owned by a different link. Merging
	// rows is an admin concern; the core only reports the collision.
	ErrCanonicalConflict = errors.New("canonical url belongs to another link")
)
