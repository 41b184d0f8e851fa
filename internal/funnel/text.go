package funnel

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents folds accented characters to their ASCII base ("não" → "nao")
// so free-text replies from Brazilian candidates normalize predictably.
func StripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify normalizes a city name into the stable identifier used in option
// IDs and form links: accents folded, lowercased, spaces to hyphens.
func Slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(StripAccents(s))), " ", "-")
}

// parseYesNo interprets a free-text reply as an affirmative or negative
// answer. The bool ok is false when the text matches neither.
func parseYesNo(text string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(StripAccents(text))) {
	case "sim", "s", "yes", "y", "claro", "tenho":
		return true, true
	case "nao", "n", "no", "nao tenho":
		return false, true
	}
	return false, false
}
