// Package analyze extracts a destination and trip length from a
// free-text planning request. It sits upstream of the orchestrator and
// never fails: unparseable input yields fallback values so plan
// creation always succeeds.
package analyze

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// FallbackDestination is used when no destination can be extracted.
	FallbackDestination = "your destination"
	// DefaultDurationDays is used when no trip length can be extracted.
	DefaultDurationDays = 3
)

var (
	// "5 days", "5-day", "five days"
	durationPattern = regexp.MustCompile(`(?i)\b(\d+|a|one|two|three|four|five|six|seven|eight|nine|ten)[\s-]*(?:day|days|night|nights)\b`)
	// "a week", "two weeks"
	weekPattern = regexp.MustCompile(`(?i)\b(\d+|a|one|two|three)[\s-]*(?:week|weeks)\b`)
	// "to Tokyo", "in Tokyo", "visit Tokyo", "trip to New York"
	destinationPattern = regexp.MustCompile(`(?i)\b(?:to|in|visit|visiting|around|explore|exploring)\s+([A-Z][\w'-]*(?:\s+[A-Z][\w'-]*)*)`)

	numberWords = map[string]int{
		"a": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
)

// AnalyzeRequest extracts (destination, duration) from a sentence like
// "Plan a 5 day trip to Tokyo". Duration is always >= 1 and destination
// is always non-empty; missing pieces fall back to defaults.
func AnalyzeRequest(text string) (string, int) {
	return extractDestination(text), extractDuration(text)
}

func extractDuration(text string) int {
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		if days := parseCount(m[1]); days >= 1 {
			return days
		}
	}
	if m := weekPattern.FindStringSubmatch(text); m != nil {
		if weeks := parseCount(m[1]); weeks >= 1 {
			return weeks * 7
		}
	}
	return DefaultDurationDays
}

func extractDestination(text string) string {
	if m := destinationPattern.FindStringSubmatch(text); m != nil {
		dest := strings.TrimSpace(m[1])
		if dest != "" {
			return dest
		}
	}
	return FallbackDestination
}

func parseCount(word string) int {
	if n, err := strconv.Atoi(word); err == nil {
		return n
	}
	if n, ok := numberWords[strings.ToLower(word)]; ok {
		return n
	}
	return 0
}
