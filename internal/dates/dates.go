// Package dates normalizes the date strings reported by search results.
// Google results mix absolute dates ("Mar 12, 2025") with relative phrases
// ("2 days ago"); both are normalized to RFC 3339 so the store can compare
// them lexically. Strings neither form can explain are passed through as-is.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var relativePattern = regexp.MustCompile(`(?i)^(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)

// Normalize converts raw to RFC 3339 relative to now. The second return
// value reports whether the string was understood; when false, raw is
// returned unchanged for storage.
func Normalize(raw string, now time.Time) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if t, ok := parseRelative(trimmed, now); ok {
		return t.UTC().Format(time.RFC3339), true
	}

	if t, err := dateparse.ParseAny(trimmed); err == nil {
		return t.UTC().Format(time.RFC3339), true
	}

	return raw, false
}

func parseRelative(s string, now time.Time) (time.Time, bool) {
	switch strings.ToLower(s) {
	case "today", "just now", "now":
		return now, true
	case "yesterday":
		return now.AddDate(0, 0, -1), true
	}

	m := relativePattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	switch strings.ToLower(m[2]) {
	case "second":
		return now.Add(-time.Duration(n) * time.Second), true
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	case "year":
		return now.AddDate(-n, 0, 0), true
	}
	return time.Time{}, false
}
