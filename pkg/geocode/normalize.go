package geocode

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stateSuffixRe matches embedded state annotations like "/RS" or "/ SC" at
// the end of a city name.
var stateSuffixRe = regexp.MustCompile(`\s*/\s*[A-Za-z]{2}\s*$`)

var spaceRe = regexp.MustCompile(`\s+`)

// CleanCity strips a trailing state suffix and collapses whitespace so
// variants of the same city name ("Erechim/RS", " Erechim ") converge on
// one display form. Casing and diacritics are preserved.
func CleanCity(city string) string {
	city = stateSuffixRe.ReplaceAllString(city, "")
	return spaceRe.ReplaceAllString(strings.TrimSpace(city), " ")
}

// diacriticFold removes combining marks after NFD decomposition, so
// "Bagé" and "Bage" fold together.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKey turns a cleaned city name into a cache/lookup key: lowercase,
// diacritics stripped. The original data is inconsistent about accents
// ("Bage" vs "Bagé"), so folding both sides keeps duplicate place names on
// one cache entry and one network call.
func foldKey(city string) string {
	folded, _, err := transform.String(diacriticFold, city)
	if err != nil {
		folded = city
	}
	return strings.ToLower(folded)
}
