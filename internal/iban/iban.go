package iban

import (
	"fmt"
	"math/big"
	"strings"
)

// ValidationError lists every rule an IBAN violated.
type ValidationError struct {
	Input      string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid IBAN %q: %s", e.Input, strings.Join(e.Violations, "; "))
}

// bbanFormats maps ISO 3166 country codes to the registered BBAN structure,
// in IBAN registry notation: n digits, a upper-case letters, c alphanumerics.
var bbanFormats = map[string]string{
	"AD": "4n4n12c", "AE": "3n16n", "AL": "8n16c", "AT": "5n11n", "AZ": "4a20c",
	"BA": "3n3n8n2n", "BE": "3n7n2n", "BG": "4a4n2n8c", "BH": "4a14c", "BR": "8n5n10n1a1c",
	"BY": "4c4n16c", "CH": "5n12c", "CR": "4n14n", "CY": "3n5n16c", "CZ": "4n6n10n",
	"DE": "8n10n", "DK": "4n9n1n", "DO": "4c20n", "EE": "2n2n11n1n", "EG": "4n4n17n",
	"ES": "4n4n1n1n10n", "FI": "3n11n", "FO": "4n9n1n", "FR": "5n5n11c2n", "GB": "4a6n8n",
	"GE": "2a16n", "GI": "4a15c", "GL": "4n9n1n", "GR": "3n4n16c", "GT": "4c20c",
	"HR": "7n10n", "HU": "3n4n1n15n1n", "IE": "4a6n8n", "IL": "3n3n13n", "IQ": "4a3n12n",
	"IS": "4n2n6n10n", "IT": "1a5n5n12c", "JO": "4a4n18c", "KW": "4a22c", "KZ": "3n13c",
	"LB": "4n20c", "LC": "4a24c", "LI": "5n12c", "LT": "5n11n", "LU": "3n13c",
	"LV": "4a13c", "MC": "5n5n11c2n", "MD": "2c18c", "ME": "3n13n2n", "MK": "3n10c2n",
	"MR": "5n5n11n2n", "MT": "4a5n18c", "MU": "4a2n2n12n3n3a", "NL": "4a10n", "NO": "4n6n1n",
	"PK": "4a16c", "PL": "8n16n", "PS": "4a21c", "PT": "4n4n11n2n", "QA": "4a21c",
	"RO": "4a16c", "RS": "3n13n2n", "SA": "2n18c", "SC": "4a2n2n16n3a", "SE": "3n16n1n",
	"SI": "5n8n2n", "SK": "4n6n10n", "SM": "1a5n5n12c", "ST": "4n4n11n2n", "SV": "4a20n",
	"TL": "3n14n2n", "TN": "2n3n13n2n", "TR": "5n1n16c", "UA": "6n19c", "VA": "3n15n",
	"VG": "4a16n", "XK": "4n10n2n",
}

// bbanSegment is one run of the registry notation, e.g. "8n".
type bbanSegment struct {
	n     int
	class byte
}

// structures and lengths are derived from bbanFormats.
var (
	structures = map[string][]bbanSegment{}
	lengths    = map[string]int{}
)

func init() {
	for country, format := range bbanFormats {
		segs := parseFormat(format)
		total := 4
		for _, seg := range segs {
			total += seg.n
		}
		structures[country] = segs
		lengths[country] = total
	}
}

func parseFormat(format string) []bbanSegment {
	var segs []bbanSegment
	n := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
			continue
		}
		segs = append(segs, bbanSegment{n: n, class: c})
		n = 0
	}
	return segs
}

// bbanMatches reports whether bban follows the country's structure. The
// length must already match.
func bbanMatches(bban string, segs []bbanSegment) bool {
	pos := 0
	for _, seg := range segs {
		for _, r := range bban[pos : pos+seg.n] {
			switch seg.class {
			case 'n':
				if r < '0' || r > '9' {
					return false
				}
			case 'a':
				if r < 'A' || r > 'Z' {
					return false
				}
			}
		}
		pos += seg.n
	}
	return true
}

var ninetySeven = big.NewInt(97)

// Validate checks structure (country, length, national account number format)
// and checksum of an IBAN and returns it in
// electronic format (upper case, no separators).
func Validate(s string) (string, error) {
	canonical := Electronic(s)
	if canonical == "" {
		return "", &ValidationError{Input: s, Violations: []string{"IBAN is empty"}}
	}

	var violations []string
	if !isAlphanumeric(canonical) {
		violations = append(violations, "IBAN contains characters other than A-Z and 0-9")
	}
	if len(canonical) < 4 {
		violations = append(violations, fmt.Sprintf("IBAN is too short (%d characters)", len(canonical)))
		return "", &ValidationError{Input: s, Violations: violations}
	}

	country := canonical[:2]
	if want, ok := lengths[country]; !ok {
		violations = append(violations, fmt.Sprintf("country code %q is not an IBAN country", country))
	} else if len(canonical) != want {
		violations = append(violations, fmt.Sprintf("length %d does not match %d for %s", len(canonical), want, country))
	} else if isAlphanumeric(canonical) && !bbanMatches(canonical[4:], structures[country]) {
		violations = append(violations, fmt.Sprintf("account number %q does not match the %s format %s", canonical[4:], country, bbanFormats[country]))
	}

	check := canonical[2:4]
	if !isDigits(check) {
		violations = append(violations, fmt.Sprintf("check digits %q are not numeric", check))
	} else if check == "00" || check == "01" || check == "99" {
		violations = append(violations, fmt.Sprintf("check digits %q are out of range", check))
	}

	if len(violations) == 0 && !checksumValid(canonical) {
		violations = append(violations, "checksum is invalid")
	}

	if len(violations) > 0 {
		return "", &ValidationError{Input: s, Violations: violations}
	}
	return canonical, nil
}

// Electronic strips separators and upper-cases s. It does not validate.
func Electronic(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToUpper(s), "IBAN") {
		s = s[4:]
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '.':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, s)
}

// Format returns the print format: groups of four separated by spaces.
func Format(s string) string {
	s = Electronic(s)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Country returns the two-letter country code of an IBAN.
func Country(s string) string {
	s = Electronic(s)
	if len(s) < 2 {
		return ""
	}
	return s[:2]
}

// checksumValid applies ISO 7064 MOD 97-10 to a structurally valid IBAN.
func checksumValid(s string) bool {
	rearranged := s[4:] + s[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		default:
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, ninetySeven).Int64() == 1
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
