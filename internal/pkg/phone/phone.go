package phone

import "strings"

const defaultCountryCode = "91"

// Normalize reduces a phone number to the digits-only form stored on users:
// non-digits are dropped, a trunk "0" is replaced by the country code and a
// bare 10-digit national number gets the country code prefixed.
func Normalize(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	s := b.String()
	if strings.HasPrefix(s, "0") {
		s = defaultCountryCode + s[1:]
	}
	if len(s) == 10 {
		s = defaultCountryCode + s
	}
	return s
}
