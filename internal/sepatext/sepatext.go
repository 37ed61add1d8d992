// Package sepatext holds the SEPA Latin character set rules shared by the
// model and the XML codec.
package sepatext

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into base letter plus combining mark.
var ligatures = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"Ø", "O", "ø", "o",
	"Þ", "TH", "þ", "th",
	"Ð", "D", "ð", "d",
	"Đ", "D", "đ", "d",
	"Ł", "L", "ł", "l",
	"ı", "i",
	"€", "EUR",
	"&", "+",
	"\"", "'",
	"_", "-",
	"\t", " ",
	"\n", " ",
)

// Transliterate maps s onto the SEPA Latin character set
// (a-z A-Z 0-9 / - ? : ( ) . , ' + space). Diacritics are removed, known
// ligatures expanded, anything else dropped and runs of spaces collapsed.
func Transliterate(s string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), ligatures.Replace(s))
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	space := false
	for _, r := range stripped {
		if !Allowed(r) {
			continue
		}
		if r == ' ' {
			if space || b.Len() == 0 {
				continue
			}
			space = true
		} else {
			space = false
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

// Allowed reports whether r belongs to the SEPA Latin character set.
func Allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("/-?:().,'+ ", r)
}

// CheckID reports why s cannot be used as a SEPA identifier (end-to-end id,
// mandate id, payment information id): it must only use the SEPA Latin set
// without spaces, and must neither start nor end with "/" nor contain "//".
// It returns "" for a usable identifier.
func CheckID(s string) string {
	for _, r := range s {
		if r == ' ' || !Allowed(r) {
			return fmt.Sprintf("character %q is not allowed", r)
		}
	}
	switch {
	case strings.HasPrefix(s, "/"), strings.HasSuffix(s, "/"):
		return `starts or ends with "/"`
	case strings.Contains(s, "//"):
		return `contains "//"`
	}
	return ""
}
