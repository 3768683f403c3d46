package phone

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultCountryCode is prepended to numbers without a leading '+'.
const DefaultCountryCode = "+91"

// ErrInvalid indicates a phone number that cannot be used as a storage key.
var ErrInvalid = errors.New("invalid phone number")

var keyPattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

var separators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

// Key turns user input into the directory key for a phone number. Common
// separators are dropped; anything else that is not a digit (or a leading
// '+') is rejected, so the key is always a single safe path segment.
func Key(raw string) (string, error) {
	key := separators.Replace(strings.TrimSpace(raw))
	if !keyPattern.MatchString(key) {
		return "", ErrInvalid
	}
	return key, nil
}

// Normalize converts a number to E.164-like form for the messaging provider.
// Characters other than digits and '+' are stripped. Numbers without a
// leading '+' lose their leading zeros and get countryCode prepended.
func Normalize(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	num := b.String()
	if strings.HasPrefix(num, "+") {
		return num
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return countryCode + strings.TrimLeft(num, "0")
}
