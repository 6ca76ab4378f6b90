package canonical

import (
	"net/url"
	"strings"
)

// Platform describes one known redirect or tracking-link service. Hosts
// match exactly, HostSuffix matches any subdomain of the suffix. When
// PathPrefix is set the URL path must start with it as well, so that a
// wrapper endpoint (facebook.com/l.php, youtube.com/redirect) does not
// swallow the rest of the site.
//
// DestParams lists query parameters that carry the percent-encoded final
// destination, tried in order. An empty DestParams marks an opaque
// shortener that always needs a network round trip.
type Platform struct {
	Name       string
	Hosts      []string
	HostSuffix string
	PathPrefix string
	DestParams []string
}

// redirectPlatforms is the registry of known redirectors, grouped by
// origin: newsletter delivery platforms, generic shorteners, and
// embedded-destination wrappers.
var redirectPlatforms = []Platform{
	// Newsletter platforms.
	{Name: "substack", Hosts: []string{"substack.com", "email.substack.com"}, HostSuffix: ".substack.com", DestParams: []string{"url", "uri"}},
	{Name: "beehiiv", Hosts: []string{"link.mail.beehiiv.com"}, HostSuffix: ".beehiiv.com"},
	{Name: "convertkit", Hosts: []string{"click.convertkit-mail.com", "click.convertkit-mail2.com"}},
	{Name: "mailchimp", HostSuffix: ".list-manage.com", DestParams: []string{"url"}},
	{Name: "buttondown", Hosts: []string{"buttondown.email", "buttondown.com"}},
	{Name: "campaign-monitor", HostSuffix: ".createsend.com"},
	{Name: "campaign-monitor", HostSuffix: ".cmail19.com"},
	{Name: "campaign-monitor", HostSuffix: ".cmail20.com"},
	{Name: "postmark", Hosts: []string{"click.pstmrk.it"}},
	{Name: "sendgrid", Hosts: []string{"sendgrid.net"}, HostSuffix: ".sendgrid.net"},
	{Name: "mailerlite", Hosts: []string{"click.mlsend.com"}},
	{Name: "hubspot", HostSuffix: ".hubspotlinks.com"},

	// Generic shorteners, all opaque.
	{Name: "bitly", Hosts: []string{"bit.ly", "j.mp", "bitly.com"}},
	{Name: "twitter", Hosts: []string{"t.co"}},
	{Name: "tinyurl", Hosts: []string{"tinyurl.com"}},
	{Name: "owly", Hosts: []string{"ow.ly"}},
	{Name: "isgd", Hosts: []string{"is.gd"}},
	{Name: "google-shortener", Hosts: []string{"goo.gl"}},
	{Name: "buffer", Hosts: []string{"buff.ly"}},
	{Name: "linkedin", Hosts: []string{"lnkd.in"}},
	{Name: "rebrandly", Hosts: []string{"rebrand.ly"}},
	{Name: "cuttly", Hosts: []string{"cutt.ly"}},

	// Embedded-destination wrappers.
	{Name: "facebook", Hosts: []string{"l.facebook.com", "lm.facebook.com", "l.messenger.com"}, DestParams: []string{"u"}},
	{Name: "facebook", Hosts: []string{"facebook.com", "www.facebook.com"}, PathPrefix: "/l.php", DestParams: []string{"u"}},
	{Name: "google", Hosts: []string{"google.com", "www.google.com"}, PathPrefix: "/url", DestParams: []string{"url", "q", "u"}},
	{Name: "youtube", Hosts: []string{"youtube.com", "www.youtube.com"}, PathPrefix: "/redirect", DestParams: []string{"q"}},
	{Name: "medium", Hosts: []string{"medium.com"}, PathPrefix: "/r/", DestParams: []string{"url"}},
	{Name: "outlook-safelinks", HostSuffix: ".safelinks.protection.outlook.com", DestParams: []string{"url"}},
}

// maxExtractionHops bounds the fast-path extraction loop: an extracted
// destination may itself be a known wrapper.
const maxExtractionHops = 3

// MatchPlatform returns the registry entry covering u, if any.
func MatchPlatform(u *url.URL) (*Platform, bool) {
	host := strings.ToLower(u.Hostname())
	for i := range redirectPlatforms {
		p := &redirectPlatforms[i]
		if !p.matchHost(host) {
			continue
		}
		if p.PathPrefix != "" && !strings.HasPrefix(u.Path, p.PathPrefix) {
			continue
		}
		return p, true
	}
	return nil, false
}

func (p *Platform) matchHost(host string) bool {
	for _, h := range p.Hosts {
		if host == h {
			return true
		}
	}
	return p.HostSuffix != "" && strings.HasSuffix(host, p.HostSuffix)
}

// ExtractDestination pulls the embedded destination out of a wrapper URL
// without touching the network. It returns "" when the platform is opaque
// or no parameter holds a usable absolute http(s) URL.
func (p *Platform) ExtractDestination(u *url.URL) string {
	if len(p.DestParams) == 0 {
		return ""
	}
	q := u.Query()
	for _, param := range p.DestParams {
		candidate := q.Get(param)
		if candidate == "" {
			continue
		}
		if target, err := url.Parse(candidate); err == nil &&
			(target.Scheme == "http" || target.Scheme == "https") && target.Host != "" {
			return candidate
		}
	}
	return ""
}

// ExtractFinal follows embedded destinations through known wrappers,
// bounded by maxExtractionHops. It returns the furthest destination it
// could reach without a network call and whether any extraction happened.
func ExtractFinal(raw string) (string, bool) {
	current := raw
	extracted := false
	for hop := 0; hop < maxExtractionHops; hop++ {
		u, err := url.Parse(current)
		if err != nil {
			break
		}
		platform, ok := MatchPlatform(u)
		if !ok {
			break
		}
		dest := platform.ExtractDestination(u)
		if dest == "" {
			break
		}
		current = dest
		extracted = true
	}
	return current, extracted
}
