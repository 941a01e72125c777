// Package textnorm folds free-text location names into the lowercase,
// accent-free forms used in URL slugs and in location matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters NFD does not decompose
var ligatures = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"Æ", "ae",
	"œ", "oe",
	"Œ", "oe",
	"ø", "o",
	"Ø", "o",
	"ł", "l",
	"Ł", "l",
	"đ", "d",
	"Đ", "d",
)

// Fold lowercases s and strips diacritics ("Málaga" -> "malaga").
// Whitespace and punctuation are kept as they are.
func Fold(s string) string {
	// transformers carry state, so one chain per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Slug turns a name into a URL-safe token made of [a-z0-9] groups joined by
// single hyphens ("Nueva Andalucía" -> "nueva-andalucia"). Anything that is
// not an ASCII letter or digit, underscores included, acts as a separator.
func Slug(s string) string {
	folded := Fold(s)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// Words turns a slug back into space separated words for substring matching
// against free-text columns ("santa-cruz" -> "santa cruz").
func Words(slug string) string {
	return strings.ReplaceAll(slug, "-", " ")
}

// Contains reports whether haystack contains needle after folding both,
// treating hyphens and runs of whitespace alike.
func Contains(haystack, needle string) bool {
	n := Words(Slug(needle))
	if n == "" {
		return false
	}
	return strings.Contains(Words(Slug(haystack)), n)
}
