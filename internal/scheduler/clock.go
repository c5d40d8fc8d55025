package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for reservation dates.
const DateLayout = "2006-01-02"

// MinutesPerDay is the number of minutes in a calendar day.
const MinutesPerDay = 24 * 60

var (
	// ErrInvalidDate indicates a date string is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidClock indicates a time string is not a valid HH:MM time of day.
	ErrInvalidClock = errors.New("scheduler: invalid time of day")
)

// Clock is a wall-clock time of day expressed as minutes after midnight.
//
// Values at or above MinutesPerDay describe the end of an interval that runs
// past midnight; they render as "24:30" rather than wrapping to "00:30" so that
// ordering and overlap comparisons stay monotonic within a reservation date.
type Clock int

// ParseClock parses an "HH:MM" (or "HH:MM:SS") time of day within a single day.
func ParseClock(value string) (Clock, error) {
	c, err := parseClock(value)
	if err != nil {
		return 0, err
	}
	if c >= MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return c, nil
}

// ParseEndClock parses a stored interval end, allowing hours up to 47.
func ParseEndClock(value string) (Clock, error) {
	c, err := parseClock(value)
	if err != nil {
		return 0, err
	}
	if c >= 2*MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return c, nil
}

func parseClock(value string) (Clock, error) {
	trimmed := strings.TrimSpace(value)
	parts := strings.Split(trimmed, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	if len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	if len(parts) == 3 {
		seconds, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || seconds < 0 || seconds > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
		}
	}

	return Clock(hours*60 + minutes), nil
}

// String renders the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Hour returns the hour component of the clock.
func (c Clock) Hour() int {
	return int(c) / 60
}

// ClockOf extracts the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// ParseDate parses a calendar date as local midnight in loc. No conversion to
// or from UTC happens, so the weekday is always the weekday of the calendar
// date the caller wrote.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

// Weekday returns the weekday of a YYYY-MM-DD calendar date.
func Weekday(date string) (time.Weekday, error) {
	t, err := ParseDate(date, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// StartInstant combines a calendar date and a time of day into an instant in loc.
func StartInstant(date string, start Clock, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, int(start), 0, 0, day.Location()), nil
}

// FormatDate renders t as a YYYY-MM-DD calendar date in t's location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Interval is a half-open [Start, End) span within a reservation date.
type Interval struct {
	Start Clock
	End   Clock
}

// NewInterval returns the interval starting at start and lasting duration minutes.
func NewInterval(start Clock, durationMinutes int) Interval {
	return Interval{Start: start, End: start.Add(durationMinutes)}
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// only touch at a boundary do not overlap, so back-to-back bookings are allowed.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// Contains reports whether c falls inside the interval.
func (i Interval) Contains(c Clock) bool {
	return c >= i.Start && c < i.End
}
