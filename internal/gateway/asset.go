package gateway

import (
	"net/url"
	"strings"
)

// Origin is the scheme and host of the API base URL. Upload paths the
// backend hands out ("/uploads/...") are relative to it.
func (c *Client) Origin() string { return Origin(c.cfg.URL) }

func Origin(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// ResolveAsset turns an image reference from the backend into a usable URL.
// Paths are joined to origin, plain http links to the backend's own host are
// upgraded to https when origin is https, and an empty reference yields
// placeholder.
func ResolveAsset(origin, ref, placeholder string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return placeholder
	case strings.HasPrefix(ref, "//"):
		return ref
	case strings.HasPrefix(ref, "/"):
		return origin + ref
	}
	o, err := url.Parse(origin)
	if err != nil || o.Scheme != "https" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "http" || u.Host != o.Host {
		return ref
	}
	u.Scheme = "https"
	return u.String()
}
