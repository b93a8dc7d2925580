// Package urlx holds the small URL helpers used to derive site slugs and
// domains.
package urlx

import (
	"net/url"
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// WithoutHTTP strips a leading http:// or https://.
func WithoutHTTP(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return raw[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		return raw[len("http://"):]
	}
	return raw
}

// AddSchemeIfMissing prefixes raw with scheme when it has none.
func AddSchemeIfMissing(raw, scheme string) string {
	if raw == "" || schemePattern.MatchString(raw) {
		return raw
	}
	return scheme + "://" + strings.TrimPrefix(raw, "//")
}

// SetURLScheme forces the scheme of raw to scheme.
func SetURLScheme(raw, scheme string) string {
	if raw == "" {
		return raw
	}
	if loc := schemePattern.FindStringIndex(raw); loc != nil {
		return scheme + "://" + raw[loc[1]:]
	}
	return AddSchemeIfMissing(raw, scheme)
}

// ToSlug turns a site URL into a slug: the scheme is removed and path
// separators become "::".
func ToSlug(raw string) string {
	trimmed := strings.TrimRight(WithoutHTTP(strings.TrimSpace(raw)), "/")
	return strings.ReplaceAll(trimmed, "/", "::")
}

// Hostname returns the host of raw, or "" when it cannot be parsed.
func Hostname(raw string) string {
	parsed, err := url.Parse(AddSchemeIfMissing(strings.TrimSpace(raw), "http"))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// IsHTTPS reports whether raw uses the https scheme.
func IsHTTPS(raw string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(raw)), "https://")
}
