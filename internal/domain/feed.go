package domain

import "time"

// FeedItem is one entry of a polled feed, reduced to the fields the
// ingestion pipeline cares about. Content holds the raw item HTML used
// for outbound-link extraction.
type FeedItem struct {
	URL         string
	Title       string
	Description string
	Content     string
	PublishedAt *time.Time
}
