package util

import (
	"regexp"
	"strings"
)

var (
	reNonDigits = regexp.MustCompile(`\D`)
	reBRPhone   = regexp.MustCompile(`^(55)?\d{10,11}$`)
)

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(input string) string {
	return reNonDigits.ReplaceAllString(input, "")
}

// ValidBRPhone accepts a Brazilian number with area code, optionally
// prefixed by the +55 country code, in any punctuation.
func ValidBRPhone(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	return reBRPhone.MatchString(NormalizePhone(input))
}
