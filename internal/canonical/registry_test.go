package canonical

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Size(t *testing.T) {
	assert.GreaterOrEqual(t, len(redirectPlatforms), 20)
}

func TestMatchPlatform(t *testing.T) {
	tests := []struct {
		rawURL   string
		platform string
		matched  bool
	}{
		{"https://abc.list-manage.com/track/click?u=1", "mailchimp", true},
		{"https://bit.ly/3xYz", "bitly", true},
		{"https://t.co/abcdef", "twitter", true},
		{"https://newsletter.substack.com/redirect?url=x", "substack", true},
		{"https://l.facebook.com/l.php?u=x", "facebook", true},
		{"https://www.facebook.com/l.php?u=x", "facebook", true},
		{"https://www.facebook.com/somepage", "", false},
		{"https://www.google.com/url?q=x", "google", true},
		{"https://www.google.com/search?q=x", "", false},
		{"https://www.youtube.com/redirect?q=x", "youtube", true},
		{"https://eu1.safelinks.protection.outlook.com/?url=x", "outlook-safelinks", true},
		{"https://example.com/a", "", false},
	}

	for _, tt := range tests {
		u, err := url.Parse(tt.rawURL)
		require.NoError(t, err)

		p, ok := MatchPlatform(u)
		assert.Equal(t, tt.matched, ok, "url %q", tt.rawURL)
		if tt.matched {
			assert.Equal(t, tt.platform, p.Name, "url %q", tt.rawURL)
		}
	}
}

func TestExtractFinal_MailchimpFastPath(t *testing.T) {
	raw := "https://abc.list-manage.com/track/click?u=1&id=2&url=https%3A%2F%2Fexample.com%2Fp"

	dest, ok := ExtractFinal(raw)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/p", dest)
}

func TestExtractFinal_OpaqueShortener(t *testing.T) {
	// bit.ly carries no embedded destination: no extraction, caller must
	// hit the network.
	dest, ok := ExtractFinal("https://bit.ly/3xYz")
	assert.False(t, ok)
	assert.Equal(t, "https://bit.ly/3xYz", dest)
}

func TestExtractFinal_ChainedWrappers(t *testing.T) {
	inner := url.QueryEscape("https://example.com/article")
	facebook := "https://l.facebook.com/l.php?u=" + inner
	mailchimp := "https://abc.list-manage.com/track/click?url=" + url.QueryEscape(facebook)

	dest, ok := ExtractFinal(mailchimp)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/article", dest)
}

func TestExtractFinal_RejectsNonHTTPDestination(t *testing.T) {
	raw := "https://abc.list-manage.com/track/click?url=javascript%3Aalert%281%29"

	dest, ok := ExtractFinal(raw)
	assert.False(t, ok)
	assert.Equal(t, raw, dest)
}

func TestExtractFinal_UnknownHost(t *testing.T) {
	dest, ok := ExtractFinal("https://example.com/a?url=https%3A%2F%2Fother.com")
	assert.False(t, ok)
	assert.Equal(t, "https://example.com/a?url=https%3A%2F%2Fother.com", dest)
}
