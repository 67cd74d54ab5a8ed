package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery canonicalizes a search query for cache addressing. The input
// is lowercased, whitespace runs collapse to single spaces with outer
// whitespace trimmed, and the result is converted to Unicode NFC. Queries
// that differ only in case, spacing, or composition form normalize to the
// same string.
func NormalizeQuery(query string) string {
	lowered := strings.ToLower(query)
	collapsed := strings.Join(strings.Fields(lowered), " ")
	return norm.NFC.String(collapsed)
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Ternary is a generic conditional helper that returns a if cond is true, b otherwise.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
