package normalize

import "strings"

// CanonicalURL returns the identity form of an item URL.
//
// Whitespace is trimmed. Without a query or fragment, trailing slashes are
// removed from a URL longer than one character. With a query, only the path
// before '?' loses its trailing slashes. A URL with a fragment and no query is
// kept as is. Scheme, host casing and percent-encoding are left untouched.
// Removing every trailing slash rather than exactly one keeps the function
// idempotent for inputs such as "https://x.com/a//".
func CanonicalURL(raw string) string {
	u := strings.TrimSpace(raw)

	q := strings.IndexByte(u, '?')
	f := strings.IndexByte(u, '#')
	switch {
	case q >= 0 && (f < 0 || q < f):
		return trimSlashes(u[:q]) + u[q:]
	case f >= 0:
		return u
	default:
		return trimSlashes(u)
	}
}

func trimSlashes(p string) string {
	if len(p) <= 1 {
		return p
	}
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
