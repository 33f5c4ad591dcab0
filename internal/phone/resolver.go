// Package phone normalizes loosely formatted phone numbers into the chat
// identifier format the underlying client expects.
package phone

import (
	"regexp"
	"strings"
)

// DirectChatSuffix is appended to a bare number to form a direct-chat
// identifier.
const DirectChatSuffix = "@c.us"

// italianMobile matches a national Italian mobile number without country
// code: a leading 3 followed by 8 or 9 more digits.
var italianMobile = regexp.MustCompile(`^3\d{8,9}$`)

var stripper = strings.NewReplacer(
	" ", "",
	"\t", "",
	"+", "",
	"-", "",
	"(", "",
	")", "",
)

// Normalize strips formatting characters and prepends the Italian country
// code to bare national mobile numbers. It is idempotent on already
// normalized input and returns "" for empty input.
func Normalize(raw string) string {
	n := stripper.Replace(strings.TrimSpace(raw))
	if n == "" {
		return ""
	}
	if italianMobile.MatchString(n) {
		n = "39" + n
	}
	return n
}

// ChatID turns a raw phone number into a direct-chat identifier. Input
// that already contains "@" is treated as fully qualified and returned
// unchanged apart from formatting stripping.
func ChatID(raw string) string {
	if strings.Contains(raw, "@") {
		return strings.TrimSpace(raw)
	}
	n := Normalize(raw)
	if n == "" {
		return ""
	}
	return n + DirectChatSuffix
}
