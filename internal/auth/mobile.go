package auth

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidMobile reports a mobile number that cannot be normalized to the
// 10-digit form used as the login key.
var ErrInvalidMobile = errors.New("invalid mobile number")

// NormalizeMobile reduces user input to the canonical 10-digit mobile number.
// Spaces, dashes and parentheses are stripped; a leading +91, 91 or 0 trunk
// prefix is dropped. Anything that doesn't leave exactly 10 digits fails.
func NormalizeMobile(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '+':
			// separators and the plus sign are ignored
		default:
			return "", ErrInvalidMobile
		}
	}

	number := digits.String()
	switch {
	case len(number) == 12 && strings.HasPrefix(number, "91"):
		number = number[2:]
	case len(number) == 11 && strings.HasPrefix(number, "0"):
		number = number[1:]
	}

	if len(number) != 10 {
		return "", ErrInvalidMobile
	}
	return number, nil
}
