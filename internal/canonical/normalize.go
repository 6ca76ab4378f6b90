package canonical

import (
	"net/url"
	"path"
	"strings"
)

// trackingParams are query parameters stripped during normalization: the UTM
// family, ad-click identifiers, email-platform subscriber tokens, and generic
// referrer tags. Keys match exactly.
var trackingParams = map[string]struct{}{
	"utm_source":       {},
	"utm_medium":       {},
	"utm_campaign":     {},
	"utm_term":         {},
	"utm_content":      {},
	"fbclid":           {},
	"gclid":            {},
	"msclkid":          {},
	"twclid":           {},
	"mc_cid":           {},
	"mc_eid":           {},
	"ck_subscriber_id": {},
	"oly_enc_id":       {},
	"oly_anon_id":      {},
	"__s":              {},
	"ref":              {},
	"ref_src":          {},
	"ref_url":          {},
	"source":           {},
	"trk":              {},
	"trkInfo":          {},
}

// Normalize reduces an absolute http/https URL to its canonical string form:
// https scheme, lowercased host without a www prefix or default port, no
// fragment, cleaned path without trailing slashes, tracking parameters
// removed and the remaining query sorted by key.
//
// Normalize is pure and never fails: unparseable input and non-http(s)
// schemes are returned unchanged. It is idempotent, so
// Normalize(Normalize(u)) == Normalize(u) for any u.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return raw
	}
	if u.Host == "" {
		return raw
	}

	u.Scheme = "https"
	u.Host = normalizeHost(u.Hostname(), u.Port())
	if u.Host == "" {
		return raw
	}

	// Fragments never survive; an empty "#" is dropped too.
	u.Fragment = ""
	u.RawFragment = ""

	u.Path = normalizePath(u.Path)
	u.RawPath = ""

	u.ForceQuery = false
	if u.RawQuery != "" {
		q := u.Query()
		for key := range trackingParams {
			q.Del(key)
		}
		u.RawQuery = q.Encode() // Encode sorts keys
	}

	return u.String()
}

// normalizeHost lowercases the host, strips leading www labels, and drops
// the default http/https ports while preserving any other explicit port.
func normalizeHost(hostname, port string) string {
	host := strings.ToLower(hostname)
	for strings.HasPrefix(host, "www.") {
		stripped := strings.TrimPrefix(host, "www.")
		if stripped == "" {
			break
		}
		host = stripped
	}
	if host == "" {
		return ""
	}
	if strings.Contains(host, ":") {
		// Bare IPv6 literal from Hostname(); restore brackets.
		host = "[" + host + "]"
	}
	switch port {
	case "", "80", "443":
		return host
	default:
		return host + ":" + port
	}
}

// normalizePath collapses repeated slashes and removes trailing slashes.
// The empty path maps to "/" so that the site root has a single identity.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}
