package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLength bounds tag, budget and key names.
const MaxNameLength = 100

var colorRegexp = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateName checks a required resource name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return fmt.Errorf("name exceeds maximum length of %d characters (got %d)", MaxNameLength, n)
	}
	return nil
}

// ValidateColor accepts an empty value or a #rgb / #rrggbb hex color.
func ValidateColor(color string) error {
	if color == "" || colorRegexp.MatchString(color) {
		return nil
	}
	return fmt.Errorf("invalid color %q: must be a hex color like #4f46e5", color)
}

// ValidateEvents checks that every event is one of allowed.
func ValidateEvents(events, allowed []string) error {
	if len(events) == 0 {
		return fmt.Errorf("at least one event is required")
	}
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}
	for _, e := range events {
		if !known[e] {
			return fmt.Errorf("invalid event %q (allowed: %s)", e, strings.Join(allowed, ", "))
		}
	}
	return nil
}
