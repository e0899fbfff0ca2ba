package utils

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeTopicName lowercases and replaces whitespace with underscores.
func NormalizeTopicName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// CapitalizedName turns "hip_hop_music" into "Hip Hop Music".
func CapitalizedName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Domain returns the hostname of link without a leading "www.".
func Domain(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true, ".svg": true,
}

// IsImageURL guesses from the path extension.
func IsImageURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return imageExts[strings.ToLower(path.Ext(u.Path))]
}

// IsHTTPURL reports whether link is an absolute http(s) URL with a host.
func IsHTTPURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
