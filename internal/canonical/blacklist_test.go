package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linksignal/internal/domain"
)

func TestGuard_DomainMatch(t *testing.T) {
	guard := NewGuard([]domain.BlacklistEntry{
		{Type: domain.BlacklistDomain, Pattern: "spam.example"},
		{Type: domain.BlacklistDomain, Pattern: "www.tracker.example"},
	})

	assert.True(t, guard.IsBlacklisted("https://spam.example/post"))
	assert.True(t, guard.IsBlacklisted("https://www.spam.example/post"))
	assert.True(t, guard.IsBlacklisted("http://SPAM.example/other"))

	// A www-prefixed pattern denies the bare domain too.
	assert.True(t, guard.IsBlacklisted("https://tracker.example/x"))
	assert.True(t, guard.IsBlacklisted("https://www.tracker.example/x"))

	assert.False(t, guard.IsBlacklisted("https://fine.example/post"))
	assert.False(t, guard.IsBlacklisted("https://notspam.example/post"))
}

func TestGuard_URLMatch(t *testing.T) {
	guard := NewGuard([]domain.BlacklistEntry{
		{Type: domain.BlacklistURL, Pattern: "https://example.com/banned"},
	})

	assert.True(t, guard.IsBlacklisted("https://example.com/banned"))
	assert.False(t, guard.IsBlacklisted("https://example.com/banned/child"))
	assert.False(t, guard.IsBlacklisted("https://example.com/allowed"))
}

func TestGuard_FailClosed(t *testing.T) {
	guard := NewGuard(nil)

	assert.True(t, guard.IsBlacklisted("http://[unparseable"))
	assert.True(t, guard.IsBlacklisted("not-a-url"))
	assert.True(t, guard.IsBlacklisted(""))
}

func TestGuard_EmptyListAllowsValidURLs(t *testing.T) {
	guard := NewGuard([]domain.BlacklistEntry{})
	assert.False(t, guard.IsBlacklisted("https://example.com/a"))
}
