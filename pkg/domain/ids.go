package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ClientIDPrefix prefixes every generated client identifier.
	ClientIDPrefix = "CLIENT_"
	// ProjectIDPrefix prefixes every generated project identifier.
	ProjectIDPrefix = "YOC"
)

// NextClientID returns the identifier following the highest CLIENT_NNN in existing.
// Identifiers that do not parse are ignored.
func NextClientID(existing []string) string {
	maxID := 0
	for _, id := range existing {
		n, ok := leadingInt(strings.TrimPrefix(id, ClientIDPrefix))
		if ok && n > maxID {
			maxID = n
		}
	}
	return fmt.Sprintf("%s%03d", ClientIDPrefix, maxID+1)
}

// ProjectYearPrefix returns the YOC{YY}- prefix for the year of now.
func ProjectYearPrefix(now time.Time) string {
	return fmt.Sprintf("%s%02d-", ProjectIDPrefix, now.Year()%100)
}

// NextProjectID returns the next YOC{YY}-NNN identifier for the calendar year of now.
// Only identifiers sharing the current year prefix participate, so every year
// starts again at 001.
func NextProjectID(existing []string, now time.Time) string {
	prefix := ProjectYearPrefix(now)
	maxNum := 0
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, ok := leadingInt(strings.TrimPrefix(id, prefix))
		if ok && n > maxNum {
			maxNum = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, maxNum+1)
}

// PointID returns the sampling point identifier for a zero-based position.
func PointID(index int) string {
	return fmt.Sprintf("P%03d", index+1)
}

// leadingInt parses the leading decimal digits of s.
func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
