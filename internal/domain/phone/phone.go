// Package phone converts customer phone numbers between the form people type
// and the E.164 form the payments vendor requires.
package phone

import "strings"

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ForSquare returns s in E.164 form. Ten digits are treated as a US number.
// The function is idempotent on its own output. Input without digits yields "".
func ForSquare(s string) string {
	d := Digits(s)
	switch {
	case d == "":
		return ""
	case len(d) == 10:
		return "+1" + d
	default:
		// Eleven digits starting with 1 already carry the US country code.
		return "+" + d
	}
}

// ForDisplay renders a US E.164 number as (XXX) XXX-XXXX and returns any
// other value unchanged.
func ForDisplay(e164 string) string {
	if strings.HasPrefix(e164, "+1") && len(e164) == 12 {
		return "(" + e164[2:5] + ") " + e164[5:8] + "-" + e164[8:]
	}
	return e164
}

// IsValid reports whether s has at least ten digits.
func IsValid(s string) bool {
	return len(Digits(s)) >= 10
}

// FormatInput formats partial input progressively as (XXX) XXX-XXXX, dropping
// digits past the tenth.
func FormatInput(s string) string {
	d := Digits(s)
	switch {
	case len(d) < 4:
		return d
	case len(d) < 7:
		return "(" + d[:3] + ") " + d[3:]
	default:
		end := min(len(d), 10)
		return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:end]
	}
}
