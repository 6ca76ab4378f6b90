// Package scoring computes velocity, weighted velocity, and trending
// classification for a link from its mention set. It is pure: all inputs,
// including the clock, are passed in.
package scoring

import (
	"math"
	"time"

	"linksignal/internal/domain"
)

// Config holds the tunable scoring constants. The weighted-velocity
// trending floor is deliberately configurable rather than baked in.
type Config struct {
	MinVelocity         int
	MinWeightedVelocity float64
	Gravity             float64
}

// DefaultConfig returns the production constants: a link trends once two
// distinct sources mention it and the decayed weighted sum reaches 1.5.
func DefaultConfig() Config {
	return Config{
		MinVelocity:         2,
		MinWeightedVelocity: 1.5,
		Gravity:             1.8,
	}
}

// LinkFacts is the slice of a link the engine needs.
type LinkFacts struct {
	BaseDomain  string
	FirstSeenAt time.Time
}

// LinkScore is the computed signal strength of one link.
type LinkScore struct {
	Velocity         int     `json:"velocity"`
	WeightedVelocity float64 `json:"weighted_velocity"`
	IsTrending       bool    `json:"is_trending"`
	RankingScore     float64 `json:"ranking_score"`
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.MinVelocity == 0 {
		cfg.MinVelocity = 2
	}
	if cfg.MinWeightedVelocity == 0 {
		cfg.MinWeightedVelocity = 1.5
	}
	if cfg.Gravity == 0 {
		cfg.Gravity = 1.8
	}
	return &Engine{cfg: cfg}
}

// Score computes the link's signal from its mentions as of now.
//
// Velocity counts distinct dashboard-visible sources, skipping mentions
// that point back at the mentioning source's own domain. Each counted
// mention contributes timeWeight × trustWeight × tierWeight to the
// weighted velocity. The ranking score applies gravity decay over the
// link's age so newer links of equal signal rank higher.
func (e *Engine) Score(link LinkFacts, mentions []domain.MentionFacts, now time.Time) LinkScore {
	seen := make(map[string]struct{}, len(mentions))
	var score LinkScore

	for i := range mentions {
		m := &mentions[i]
		if !m.ShowOnDashboard {
			continue
		}
		if m.SelfLink(link.BaseDomain) {
			continue
		}
		if _, dup := seen[m.SourceID]; dup {
			continue
		}
		seen[m.SourceID] = struct{}{}

		score.Velocity++
		score.WeightedVelocity += timeWeight(now.Sub(m.SeenAt)) * trustWeight(m.TrustScore) * tierWeight(m.Tier)
	}

	score.IsTrending = score.Velocity >= e.cfg.MinVelocity &&
		score.WeightedVelocity >= e.cfg.MinWeightedVelocity

	score.RankingScore = e.rank(score, link.FirstSeenAt, now)
	return score
}

// rank produces a single scalar for ordering links of different ages,
// Hacker News style: score / (ageHours + 2)^gravity.
func (e *Engine) rank(score LinkScore, firstSeen, now time.Time) float64 {
	hours := now.Sub(firstSeen).Hours()
	if hours < 0 {
		hours = 0
	}
	return float64(score.Velocity) * score.WeightedVelocity / math.Pow(hours+2, e.cfg.Gravity)
}

// timeWeight decays a mention's contribution by age. Future timestamps,
// which can appear from clock skew between hosts, clamp to full weight.
func timeWeight(age time.Duration) float64 {
	switch {
	case age <= 24*time.Hour:
		return 1.0
	case age <= 48*time.Hour:
		return 0.7
	case age <= 72*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func tierWeight(tier domain.Tier) float64 {
	switch tier {
	case domain.Tier1:
		return 1.0
	case domain.Tier2:
		return 0.7
	case domain.Tier3:
		return 0.5
	case domain.Tier4:
		return 0.2
	default:
		return 0.5
	}
}

// trustWeight maps a 1-10 trust score onto 0.1-1.0. A missing score
// falls back to the default of 5.
func trustWeight(trustScore int) float64 {
	if trustScore <= 0 {
		trustScore = domain.DefaultTrustScore
	}
	return float64(trustScore) / 10
}
