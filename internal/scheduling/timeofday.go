package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time within a day, stored as minutes since midnight.
// The database keeps "HH:mm" strings, so parsing and formatting happen at the
// repository boundary and every comparison in between is numeric.
type TimeOfDay int

// ParseTimeOfDay parses a 24-hour "HH:mm" string. A single-digit hour is
// accepted ("9:00"), matching what clients already send.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := splitClock(s)
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:mm", s)
	}
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: hour must be 0-23, minute 0-59", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func splitClock(s string) (h, m int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, false
	}
	for _, p := range parts {
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0, 0, false
			}
		}
	}
	h, _ = strconv.Atoi(parts[0])
	m, _ = strconv.Atoi(parts[1])
	return h, m, true
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Add returns the time of day n minutes later. Callers are expected to stay
// within the same day; template validation guarantees that.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) Before(other TimeOfDay) bool { return t < other }
func (t TimeOfDay) After(other TimeOfDay) bool  { return t > other }

// At anchors the time of day on the given calendar date in the date's location.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}
