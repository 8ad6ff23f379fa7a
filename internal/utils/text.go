package utils

import (
	"strings"
	"time"
)

// Preview cuts s to maxRunes runes and appends "..." when it was longer.
func Preview(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}

func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}

func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, t.Location())
}
