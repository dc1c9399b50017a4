package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold strips combining marks after canonical decomposition.
func fold(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Slug converts value to a lowercase token made of ASCII letters, digits and
// single hyphens. Returns "untitled" when nothing usable remains.
func Slug(value string) string {
	out := collapse(strings.ToLower(fold(strings.TrimSpace(value))), func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
	})
	out = strings.Trim(out, "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// SanitizeAssetName rewrites a filename so it only uses letters, digits,
// dots and hyphens, the character set accepted for project assets. Runs of
// other characters become a single hyphen. Leading dots and hyphens are
// dropped so the result is never a hidden file. Returns "" when nothing
// usable remains.
func SanitizeAssetName(name string) string {
	out := collapse(fold(strings.TrimSpace(name)), func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.'
	})
	out = strings.TrimLeft(out, ".-")
	out = strings.TrimRight(out, "-")
	return out
}

// collapse keeps runes accepted by keep and replaces every run of other
// runes, including literal hyphens, with one hyphen.
func collapse(value string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(value))
	pendingDash := false
	for _, r := range value {
		if keep(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if pendingDash && b.Len() > 0 {
		b.WriteByte('-')
	}
	return b.String()
}
