package dates

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	now := time.Date(2026, 1, 28, 15, 4, 5, 0, time.UTC) // Wednesday

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"today", "today", "2026-01-28"},
		{"yesterday", "Yesterday", "2026-01-27"},
		{"days", "7d", "2026-01-21"},
		{"days ago", "7d ago", "2026-01-21"},
		{"weeks", "2w", "2026-01-14"},
		{"months", "1mo ago", "2025-12-28"},
		{"weekday", "monday", "2026-01-26"},
		{"same weekday is a week back", "wednesday", "2026-01-21"},
		{"last weekday", "last fri", "2026-01-23"},
		{"iso date", "2025-11-03", "2025-11-03"},
		{"rfc3339", "2025-11-03T10:00:00Z", "2025-11-03"},
		{"whitespace", "  today  ", "2026-01-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, now)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"", "   ", "0d", "soon", "2026-13-01", "3h"} {
		if _, err := Parse(input, now); err == nil {
			t.Errorf("Parse(%q) expected error", input)
		}
	}
}
