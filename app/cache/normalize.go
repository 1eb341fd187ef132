package cache

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never change what a URL points
// at and must not split cache entries.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"si":           true,
	"feature":      true,
	"ref":          true,
}

// NormalizeURL reduces a media URL to a stable cache key. Video-platform
// URLs collapse to "platform:id" so every spelling of the same video shares
// one entry; everything else keeps host+path plus its non-tracking query.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(rawURL)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	if key, ok := platformKey(host, u); ok {
		return key
	}

	query := u.Query()
	for param := range query {
		if trackingParams[param] {
			query.Del(param)
		}
	}

	key := host + u.Path
	if len(query) > 0 {
		// rebuild deterministically so parameter order cannot split entries
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			for _, v := range query[k] {
				pairs = append(pairs, k+"="+v)
			}
		}
		key += "?" + strings.Join(pairs, "&")
	}
	return key
}

// platformKey canonicalizes URLs of known video platforms.
func platformKey(host string, u *url.URL) (string, bool) {
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return "youtube:" + id, true
		}
		if strings.HasPrefix(u.Path, "/shorts/") {
			if id := strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/"); id != "" {
				return "youtube:" + id, true
			}
		}
		if strings.HasPrefix(u.Path, "/embed/") {
			if id := strings.Trim(strings.TrimPrefix(u.Path, "/embed/"), "/"); id != "" {
				return "youtube:" + id, true
			}
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return "youtube:" + id, true
		}
	case "vimeo.com":
		if id := strings.Trim(u.Path, "/"); id != "" && !strings.Contains(id, "/") {
			return "vimeo:" + id, true
		}
	case "twitch.tv":
		if strings.HasPrefix(u.Path, "/videos/") {
			if id := strings.Trim(strings.TrimPrefix(u.Path, "/videos/"), "/"); id != "" {
				return "twitch:" + id, true
			}
		}
	}
	return "", false
}
