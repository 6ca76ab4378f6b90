package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"linksignal/internal/domain"
)

func visibleMention(sourceID string, seenAt time.Time, tier domain.Tier, trust int) domain.MentionFacts {
	return domain.MentionFacts{
		SourceID:        sourceID,
		SeenAt:          seenAt,
		Tier:            tier,
		TrustScore:      trust,
		ShowOnDashboard: true,
	}
}

func TestScore_WeightedVelocityArithmetic(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())

	mentions := []domain.MentionFacts{
		visibleMention("s1", now, domain.Tier1, 10),
		visibleMention("s2", now, domain.Tier1, 10),
		visibleMention("s3", now, domain.Tier1, 10),
	}

	score := engine.Score(LinkFacts{FirstSeenAt: now}, mentions, now)

	assert.Equal(t, 3, score.Velocity)
	assert.InDelta(t, 3.0, score.WeightedVelocity, 1e-9)
	assert.True(t, score.IsTrending)
}

func TestScore_VelocityMonotonicity(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())
	link := LinkFacts{FirstSeenAt: now}

	mentions := []domain.MentionFacts{
		visibleMention("s1", now, domain.Tier1, 10),
	}
	base := engine.Score(link, mentions, now)
	assert.Equal(t, 1, base.Velocity)

	// A new qualifying source raises velocity by exactly one.
	mentions = append(mentions, visibleMention("s2", now, domain.Tier2, 5))
	withNew := engine.Score(link, mentions, now)
	assert.Equal(t, base.Velocity+1, withNew.Velocity)

	// A second mention from an already-counted source changes nothing.
	mentions = append(mentions, visibleMention("s2", now.Add(-time.Hour), domain.Tier2, 5))
	withDup := engine.Score(link, mentions, now)
	assert.Equal(t, withNew.Velocity, withDup.Velocity)
	assert.InDelta(t, withNew.WeightedVelocity, withDup.WeightedVelocity, 1e-9)
}

func TestScore_HiddenSourcesDoNotCount(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())

	hidden := visibleMention("s1", now, domain.Tier1, 10)
	hidden.ShowOnDashboard = false

	score := engine.Score(LinkFacts{FirstSeenAt: now}, []domain.MentionFacts{hidden}, now)
	assert.Equal(t, 0, score.Velocity)
	assert.Zero(t, score.WeightedVelocity)
}

func TestScore_SelfDomainExclusion(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())

	self := visibleMention("kottke", now, domain.Tier1, 10)
	self.SourceBaseDomain = "kottke.org"

	// feeds.kottke.org reduces to the source's own base domain.
	link := LinkFacts{BaseDomain: "kottke.org", FirstSeenAt: now}
	score := engine.Score(link, []domain.MentionFacts{self}, now)
	assert.Equal(t, 0, score.Velocity)

	// Opting in to own links restores the count.
	self.IncludeOwnLinks = true
	score = engine.Score(link, []domain.MentionFacts{self}, now)
	assert.Equal(t, 1, score.Velocity)

	// An internal domain alias is excluded the same way.
	alias := visibleMention("kottke", now, domain.Tier1, 10)
	alias.SourceBaseDomain = "kottke.org"
	alias.InternalDomains = []string{"kottke.club"}
	score = engine.Score(LinkFacts{BaseDomain: "kottke.club", FirstSeenAt: now}, []domain.MentionFacts{alias}, now)
	assert.Equal(t, 0, score.Velocity)
}

func TestScore_TimeDecay(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())
	link := LinkFacts{FirstSeenAt: now}

	tests := []struct {
		age  time.Duration
		want float64
	}{
		{12 * time.Hour, 1.0},
		{36 * time.Hour, 0.7},
		{60 * time.Hour, 0.4},
		{100 * time.Hour, 0.2},
		{-time.Hour, 1.0}, // clock skew clamps to full weight
	}
	for _, tt := range tests {
		m := visibleMention("s1", now.Add(-tt.age), domain.Tier1, 10)
		score := engine.Score(link, []domain.MentionFacts{m}, now)
		assert.InDelta(t, tt.want, score.WeightedVelocity, 1e-9, "age %v", tt.age)
	}
}

func TestScore_TierAndTrustWeights(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())
	link := LinkFacts{FirstSeenAt: now}

	tests := []struct {
		tier  domain.Tier
		trust int
		want  float64
	}{
		{domain.Tier1, 10, 1.0},
		{domain.Tier2, 10, 0.7},
		{domain.Tier3, 10, 0.5},
		{domain.Tier4, 10, 0.2},
		{domain.Tier("TIER_9"), 10, 0.5}, // unknown tier defaults
		{"", 10, 0.5},                    // missing tier defaults
		{domain.Tier1, 5, 0.5},
		{domain.Tier1, 0, 0.5}, // missing trust defaults to 5
		{domain.Tier2, 4, 0.28},
	}
	for _, tt := range tests {
		m := visibleMention("s1", now, tt.tier, tt.trust)
		score := engine.Score(link, []domain.MentionFacts{m}, now)
		assert.InDelta(t, tt.want, score.WeightedVelocity, 1e-9, "tier %q trust %d", tt.tier, tt.trust)
	}
}

func TestScore_TrendingThresholds(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())
	link := LinkFacts{FirstSeenAt: now}

	// One source only: velocity floor not met even with maximum weight.
	one := []domain.MentionFacts{visibleMention("s1", now, domain.Tier1, 10)}
	assert.False(t, engine.Score(link, one, now).IsTrending)

	// Two weak sources: velocity met, weighted floor not.
	weak := []domain.MentionFacts{
		visibleMention("s1", now, domain.Tier4, 2),
		visibleMention("s2", now, domain.Tier4, 2),
	}
	assert.False(t, engine.Score(link, weak, now).IsTrending)

	// A lower configured floor flips the weak pair to trending.
	loose := NewEngine(Config{MinVelocity: 2, MinWeightedVelocity: 0.05, Gravity: 1.8})
	assert.True(t, loose.Score(link, weak, now).IsTrending)
}

func TestScore_RankingDecay(t *testing.T) {
	now := time.Now()
	engine := NewEngine(DefaultConfig())

	mentions := []domain.MentionFacts{
		visibleMention("s1", now, domain.Tier1, 10),
		visibleMention("s2", now, domain.Tier1, 10),
	}

	fresh := engine.Score(LinkFacts{FirstSeenAt: now}, mentions, now)
	old := engine.Score(LinkFacts{FirstSeenAt: now.Add(-48 * time.Hour)}, mentions, now)

	assert.Greater(t, fresh.RankingScore, old.RankingScore)

	// velocity=2, weighted=2.0, age 0: 2*2 / 2^1.8
	expected := 4.0 / math.Pow(2, 1.8)
	assert.InDelta(t, expected, fresh.RankingScore, 1e-9)
}
