package identifier

import (
	"net/url"
	"strings"
)

const (
	DefaultDomain = "kinlink.app"
	DefaultScheme = "app"

	profileSegment = "profile"
	referrerParam  = "referrer"
)

// Link is the result of parsing an inbound URL.
type Link struct {
	ID       LinkIdentifier
	Referrer *LinkIdentifier
}

// Codec builds and parses links for one universal-link domain and one
// custom app scheme.
type Codec struct {
	domain string
	scheme string
}

// New returns a Codec; empty arguments fall back to the defaults.
func New(domain, scheme string) *Codec {
	if domain == "" {
		domain = DefaultDomain
	}
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Codec{domain: strings.ToLower(domain), scheme: strings.ToLower(scheme)}
}

func (c *Codec) Domain() string { return c.domain }
func (c *Codec) Scheme() string { return c.scheme }

// BuildLink returns the universal HTTPS link for id, or "" if id is not a
// valid identifier. The referrer query parameter is only added when
// referrer is valid itself.
func (c *Codec) BuildLink(id, referrer string) string {
	target, ok := Classify(id)
	if !ok {
		return ""
	}
	u := url.URL{
		Scheme: "https",
		Host:   c.domain,
		Path:   "/" + profileSegment + "/" + target.Value,
	}
	setReferrer(&u, referrer)
	return u.String()
}

// BuildAppLink is BuildLink for the custom app scheme:
// <scheme>://profile/<id>[?referrer=<id>].
func (c *Codec) BuildAppLink(id, referrer string) string {
	target, ok := Classify(id)
	if !ok {
		return ""
	}
	u := url.URL{
		Scheme: c.scheme,
		Host:   profileSegment,
		Path:   "/" + target.Value,
	}
	setReferrer(&u, referrer)
	return u.String()
}

func setReferrer(u *url.URL, referrer string) {
	if r, ok := Classify(referrer); ok {
		u.RawQuery = url.Values{referrerParam: {r.Value}}.Encode()
	}
}

// ParseLink extracts the identifier (and optional referrer) from raw.
//
// Accepted shapes:
//
//	<scheme>://profile/<id>[?referrer=<id>]
//	https://<domain>/profile/<id>[?referrer=<id>]
//	<id>                      (bare value, as produced by code scanners)
//
// An invalid referrer is dropped; an invalid or missing id fails the parse.
func (c *Codec) ParseLink(raw string) (Link, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		id, ok := Classify(raw)
		return Link{ID: id}, ok
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, false
	}

	var segment string
	switch strings.ToLower(u.Scheme) {
	case c.scheme:
		if !strings.EqualFold(u.Host, profileSegment) {
			return Link{}, false
		}
		segment = strings.Trim(u.Path, "/")
	case "https":
		if !strings.EqualFold(u.Hostname(), c.domain) {
			return Link{}, false
		}
		rest, ok := strings.CutPrefix(strings.Trim(u.Path, "/"), profileSegment+"/")
		if !ok {
			return Link{}, false
		}
		segment = rest
	default:
		return Link{}, false
	}

	if segment == "" || strings.Contains(segment, "/") {
		return Link{}, false
	}
	id, ok := Classify(segment)
	if !ok {
		return Link{}, false
	}

	link := Link{ID: id}
	if r, ok := Classify(u.Query().Get(referrerParam)); ok {
		link.Referrer = &r
	}
	return link, true
}
