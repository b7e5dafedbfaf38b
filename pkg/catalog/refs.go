package catalog

import "strings"

// Normalize strips separator punctuation from an identifier, keeping only
// letters and digits. Normalization is idempotent and comparison stays
// case-sensitive: "ORD-004" → "ORD004", "ord-004" → "ord004".
func Normalize(ref string) string {
	var b strings.Builder
	b.Grow(len(ref))
	for _, r := range ref {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameRef reports whether two identifiers are equivalent after normalization.
func SameRef(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
