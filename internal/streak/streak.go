// Package streak implements the daily-activity streak law shared by the
// streak endpoints and the client synchronizer.
package streak

import (
	"regexp"
	"time"
)

// Baseline is the lowest streak ever displayed.
const Baseline = 1

// DateLayout is the calendar-day format used on the wire.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// State is the persisted streak record.
type State struct {
	Count      int     `json:"streak"`
	LastActive *string `json:"lastActive"`
}

// Today formats now as a UTC calendar day.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD day.
func ValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ResolveDate returns s when it is a valid day and today's UTC date otherwise.
func ResolveDate(s string, now time.Time) string {
	if ValidDate(s) {
		return s
	}
	return Today(now)
}

// DaysBetween returns to minus from in whole calendar days.
func DaysBetween(from, to string) (int, bool) {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, false
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, false
	}
	return int(b.Sub(a).Hours() / 24), true
}

// Touch applies one activity on day. Consecutive days extend the streak,
// the same day leaves it unchanged and any other gap restarts it at one.
func Touch(s State, day string) State {
	d := day
	if s.LastActive == nil {
		return State{Count: 1, LastActive: &d}
	}
	gap, ok := DaysBetween(*s.LastActive, day)
	switch {
	case ok && gap == 0:
		return State{Count: Display(s.Count), LastActive: &d}
	case ok && gap == 1:
		return State{Count: s.Count + 1, LastActive: &d}
	default:
		return State{Count: 1, LastActive: &d}
	}
}

// Reset clears the streak.
func Reset() State {
	return State{Count: 0, LastActive: nil}
}

// Display clamps a stored count to the baseline.
func Display(count int) int {
	if count < Baseline {
		return Baseline
	}
	return count
}

// Missing is what readers see when no record exists yet.
func Missing() State {
	return State{Count: Baseline, LastActive: nil}
}
