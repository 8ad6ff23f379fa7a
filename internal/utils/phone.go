package utils

import (
	"regexp"
	"strings"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	phoneStripper = regexp.MustCompile(`[^\d+]`)
)

// NormalizePhone strips formatting and ensures a leading +.
func NormalizePhone(phone string) string {
	normalized := phoneStripper.ReplaceAllString(phone, "")
	if normalized != "" && !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	return normalized
}

func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(NormalizePhone(phone))
}
