package analyze

import "testing"

func TestAnalyzeRequest(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		destination  string
		durationDays int
	}{
		{"plain", "Plan a 5 day trip to Tokyo", "Tokyo", 5},
		{"hyphenated duration", "I want a 3-day trip to Lisbon", "Lisbon", 3},
		{"word number", "Plan a three day visit to Oslo", "Oslo", 3},
		{"nights", "Two nights in Paris please", "Paris", 2},
		{"weeks", "Spend a week exploring New Zealand", "New Zealand", 7},
		{"two weeks", "two weeks to Buenos Aires", "Buenos Aires", 14},
		{"multi word destination", "4 days in New York City", "New York City", 4},
		{"no duration", "I'd like to visit Kyoto", "Kyoto", DefaultDurationDays},
		{"no destination", "plan me a 2 day getaway", FallbackDestination, 2},
		{"nothing extractable", "help me travel somewhere nice", FallbackDestination, DefaultDurationDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, days := AnalyzeRequest(tt.text)
			if dest != tt.destination {
				t.Errorf("destination: expected %q, got %q", tt.destination, dest)
			}
			if days != tt.durationDays {
				t.Errorf("duration: expected %d, got %d", tt.durationDays, days)
			}
		})
	}
}

func TestAnalyzeRequestNeverInvalid(t *testing.T) {
	for _, text := range []string{"", "   ", "0 days to ", "plan -3 days"} {
		dest, days := AnalyzeRequest(text)
		if dest == "" {
			t.Errorf("%q: empty destination", text)
		}
		if days < 1 {
			t.Errorf("%q: duration %d < 1", text, days)
		}
	}
}
