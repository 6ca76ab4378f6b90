package domain

import "time"

// Well-known IngestResult error strings. These are outcomes, not Go errors:
// batch processing must keep going when it sees them.
const (
	ErrorBlacklisted      = "Blacklisted"
	ErrorDuplicateMention = "duplicate mention"
)

// RawMention is a candidate URL handed to the ingestor by a collaborator
// (feed poller, email webhook, manual entry).
type RawMention struct {
	URL         string
	SourceID    string
	Title       string
	Description string
}

// IngestResult reports the outcome of ingesting a single raw mention.
// Failures are values, never panics, so one bad URL cannot abort the rest
// of a batch.
type IngestResult struct {
	URL       string          `json:"url"`
	Success   bool            `json:"success"`
	LinkID    string          `json:"link_id,omitempty"`
	Status    CanonicalStatus `json:"status,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// BatchStats aggregates per-item outcomes of one ingestion batch.
type BatchStats struct {
	SourceID    string
	Processed   int
	Succeeded   int
	Failed      int
	Duplicates  int
	Rejected    int // blacklist hits
	NeedsReview []string
	Results     []IngestResult
	Duration    time.Duration
}

// Add folds a single result into the batch counters.
func (b *BatchStats) Add(r IngestResult) {
	b.Processed++
	b.Results = append(b.Results, r)

	switch {
	case r.Success && r.Duplicate:
		b.Succeeded++
		b.Duplicates++
	case r.Success:
		b.Succeeded++
	case r.Error == ErrorBlacklisted:
		b.Rejected++
	default:
		b.Failed++
	}

	if r.Success && r.Status == CanonicalFailed {
		b.NeedsReview = append(b.NeedsReview, r.URL)
	}
}

// PollStats holds statistics about one source poll.
type PollStats struct {
	SourceID   string
	Items      int // feed entries seen
	Candidates int // candidate URLs discovered
	SkippedOwn int // self-domain exclusions
	Ingest     BatchStats
	Duration   time.Duration
}
