package scheduler

import "time"

// HoursRule is one operating-hours window for a weekday.
type HoursRule struct {
	Weekday time.Weekday
	Open    Clock
	Close   Clock
	Active  bool
}

// WithinHours reports whether a reservation may start at the given time on
// the given date. A weekday without an active rule is closed all day. The
// window is open on the close side: a booking may start up to, but not at,
// closing time.
func WithinHours(rules []HoursRule, date string, at Clock) (bool, error) {
	weekday, err := Weekday(date)
	if err != nil {
		return false, err
	}

	for _, rule := range rules {
		if !rule.Active || rule.Weekday != weekday {
			continue
		}
		if at >= rule.Open && at < rule.Close {
			return true, nil
		}
	}
	return false, nil
}
