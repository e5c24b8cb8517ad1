package protocol

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeOrigin reduces a URL or origin string to its canonical
// scheme://host[:port] form: lowercased, path/query/fragment stripped,
// trailing slashes removed, default ports dropped. The stored server
// origin and the page origin are always compared in this form.
func NormalizeOrigin(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidOrigin)
	}
	trimmed = strings.TrimRight(trimmed, "/")

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidOrigin, parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidOrigin, raw)
	}

	port := parsed.Port()
	switch {
	case port == "":
	case scheme == "https" && port == "443":
		port = ""
	case scheme == "http" && port == "80":
		port = ""
	}

	if port != "" {
		return scheme + "://" + host + ":" + port, nil
	}
	return scheme + "://" + host, nil
}

// SameOrigin reports whether two URL or origin strings normalize to the
// same origin. Unparseable inputs never match anything.
func SameOrigin(a, b string) bool {
	normalizedA, err := NormalizeOrigin(a)
	if err != nil {
		return false
	}
	normalizedB, err := NormalizeOrigin(b)
	if err != nil {
		return false
	}
	return normalizedA == normalizedB
}
