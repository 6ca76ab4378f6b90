package canonical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linksignal/internal/domain"
)

func newTestCanonicalizer(t *testing.T, transport http.RoundTripper) *Canonicalizer {
	t.Helper()
	r := NewResolver(ResolverConfig{}, nil, testLogger())
	if transport != nil {
		r.transport = transport
	}
	return NewCanonicalizer(r, testLogger())
}

func TestCanonicalize_FastPathEndToEnd(t *testing.T) {
	c := newTestCanonicalizer(t, noNetworkTransport{t})

	raw := "https://abc.list-manage.com/track/click?u=1&id=2&url=https%3A%2F%2Fwww.Example.com%2Fp%2F%3Futm_source%3Dnews"
	result, err := c.Canonicalize(context.Background(), raw, nil)

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/p", result.CanonicalURL)
	assert.Equal(t, "example.com", result.Domain)
	assert.Equal(t, "example.com", result.BaseDomain)
	assert.Equal(t, domain.CanonicalSuccess, result.Status)
	assert.Empty(t, result.Error)
}

func TestCanonicalize_RawBlacklistedBeforeNetwork(t *testing.T) {
	// The transport fails the test if touched: a blacklisted raw URL must
	// short-circuit before any network cost.
	c := newTestCanonicalizer(t, noNetworkTransport{t})

	entries := []domain.BlacklistEntry{
		{Type: domain.BlacklistDomain, Pattern: "spam.example"},
	}
	_, err := c.Canonicalize(context.Background(), "https://spam.example/x", entries)
	assert.ErrorIs(t, err, domain.ErrBlacklisted)
}

func TestCanonicalize_ResolvedDestinationBlacklisted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestCanonicalizer(t, nil)

	// The wrapper host is clean, the embedded destination is not.
	entries := []domain.BlacklistEntry{
		{Type: domain.BlacklistDomain, Pattern: "spam.example"},
	}
	raw := "https://abc.list-manage.com/track/click?url=https%3A%2F%2Fspam.example%2Fpost"
	_, err := c.Canonicalize(context.Background(), raw, entries)
	assert.ErrorIs(t, err, domain.ErrBlacklisted)
}

func TestCanonicalize_InvalidInput(t *testing.T) {
	c := newTestCanonicalizer(t, noNetworkTransport{t})

	for _, raw := range []string{"", "not-a-url", "ftp://example.com/x", "http://[bad"} {
		_, err := c.Canonicalize(context.Background(), raw, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidURL, "input %q", raw)
	}
}

func TestCanonicalize_ResolverFailureDegradesSoftly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	raw := server.URL + "/Article/?utm_source=x"
	server.Close()

	c := newTestCanonicalizer(t, nil)

	result, err := c.Canonicalize(context.Background(), raw, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CanonicalFailed, result.Status)
	assert.NotEmpty(t, result.Error)
	// Falls back to the normalized original so the link still gets a
	// stable identity.
	assert.Equal(t, Normalize(raw), result.CanonicalURL)
}

func TestCanonicalize_FollowsNetworkRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCanonicalizer(t, nil)

	result, err := c.Canonicalize(context.Background(), server.URL+"/start", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CanonicalSuccess, result.Status)
	assert.Equal(t, Normalize(server.URL+"/final"), result.CanonicalURL)
	assert.NotEmpty(t, result.RedirectChain)
}

func TestBaseDomain(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"feeds.kottke.org", "kottke.org"},
		{"news.bbc.co.uk", "bbc.co.uk"},
		{"shop.something.com.au", "something.com.au"},
		{"deep.sub.example.co.jp", "example.co.jp"},
		{"localhost", "localhost"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseDomain(tt.host), "host %q", tt.host)
	}
}
