package util

import (
	"regexp"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

// phoneRegex accepts international format with optional + prefix,
// 8 to 15 digits per E.164.
var phoneRegex = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

func IsValidPhoneNumber(s string) bool {
	if s == "" {
		return false
	}
	return phoneRegex.MatchString(s)
}
