// Package daykey converts instants to local calendar-day keys ("YYYY-MM-DD")
// and performs the small amount of calendar arithmetic the dashboard needs.
//
// Keys are always derived from the calendar fields of the time value in its
// own location. Formatting a UTC conversion would shift the day for anyone
// east or west of Greenwich near midnight.
package daykey

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Key formats t as YYYY-MM-DD using t's local calendar date.
func Key(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// Parse returns midnight of the day named by key in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", key, err)
	}
	return t, nil
}

// Valid reports whether key is a well-formed calendar day.
func Valid(key string) bool {
	if len(key) != len(layout) {
		return false
	}
	_, err := time.Parse(layout, key)
	return err == nil
}

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Yesterday returns the key of the day before t.
func Yesterday(t time.Time) string {
	return Key(StartOfDay(t).AddDate(0, 0, -1))
}

// AddDays shifts key by n calendar days. Keys are interpreted in UTC here,
// which is safe because only the calendar fields matter.
func AddDays(key string, n int) (string, error) {
	t, err := Parse(key, time.UTC)
	if err != nil {
		return "", err
	}
	return Key(t.AddDate(0, 0, n)), nil
}

// WeekStart returns midnight of the Monday that begins t's week.
// Sunday is the last day of the week.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		offset = 6
	}
	return day.AddDate(0, 0, -offset)
}

// WeekKeys returns the seven keys Monday..Sunday of t's week.
func WeekKeys(t time.Time) []string {
	start := WeekStart(t)
	keys := make([]string, 7)
	for i := range keys {
		keys[i] = Key(start.AddDate(0, 0, i))
	}
	return keys
}

// MonthKeys returns every day key of the given month.
func MonthKeys(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	n := DaysIn(year, month)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = Key(first.AddDate(0, 0, i))
	}
	return keys
}

// DaysIn returns the number of days in a month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthLeadingBlanks returns how many empty cells precede day 1 in a
// Monday-first month grid.
func MonthLeadingBlanks(year int, month time.Month) int {
	wd := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// Month returns the "YYYY-MM" prefix of a day key.
func Month(key string) string {
	if len(key) < 7 {
		return ""
	}
	return key[:7]
}
