// Package dates turns human date expressions into the YYYY-MM-DD form the
// API expects for start_date and end_date.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the wire format for date filters.
const Layout = "2006-01-02"

// Matches "7d", "7d ago", "2w", "1mo ago". Durations always look back.
var relativeRegex = regexp.MustCompile(`^(\d+)\s*(mo|w|d)(\s+ago)?$`)

// Parse resolves expr relative to now and formats it as YYYY-MM-DD.
// Supports "today", "yesterday", weekday names ("monday", "last fri"),
// "7d", "2w ago", "3mo", YYYY-MM-DD and RFC3339.
func Parse(expr string, now time.Time) (string, error) {
	t, err := Resolve(expr, now)
	if err != nil {
		return "", err
	}
	return t.Format(Layout), nil
}

// Resolve is Parse without the formatting. The result is a start of day in
// now's location, except for RFC3339 input which is kept as given.
func Resolve(expr string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date expression")
	}
	input := strings.ToLower(raw)
	today := startOfDay(now)

	switch input {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if t, ok := lastWeekday(input, today); ok {
		return t, nil
	}

	if m := relativeRegex.FindStringSubmatch(input); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return time.Time{}, fmt.Errorf("invalid relative date %q", raw)
		}
		switch m[2] {
		case "mo":
			return today.AddDate(0, -n, 0), nil
		case "w":
			return today.AddDate(0, 0, -7*n), nil
		default:
			return today.AddDate(0, 0, -n), nil
		}
	}

	if t, err := time.ParseInLocation(Layout, raw, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD, today, yesterday, a weekday, or 7d/2w/1mo)", raw)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// lastWeekday resolves "monday" or "last monday" to the most recent such day
// strictly before today.
func lastWeekday(input string, today time.Time) (time.Time, bool) {
	input = strings.TrimSpace(strings.TrimPrefix(input, "last "))
	weekday, ok := weekdayMap[input]
	if !ok {
		return time.Time{}, false
	}
	delta := (int(today.Weekday()) - int(weekday) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, -delta), true
}

var weekdayMap = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thurs":     time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,
}
