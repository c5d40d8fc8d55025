package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinHours(t *testing.T) {
	rules := []HoursRule{
		{Weekday: time.Tuesday, Open: 10 * 60, Close: 22 * 60, Active: true},
		{Weekday: time.Wednesday, Open: 12 * 60, Close: 15 * 60, Active: true},
		{Weekday: time.Wednesday, Open: 19 * 60, Close: 23 * 60, Active: true},
		{Weekday: time.Thursday, Open: 10 * 60, Close: 22 * 60, Active: false},
	}

	tests := []struct {
		name string
		date string
		at   string
		want bool
	}{
		{name: "opening minute", date: "2024-03-19", at: "10:00", want: true},
		{name: "late evening", date: "2024-03-19", at: "21:59", want: true},
		{name: "exactly at close", date: "2024-03-19", at: "22:00", want: false},
		{name: "after close", date: "2024-03-19", at: "23:00", want: false},
		{name: "before open", date: "2024-03-19", at: "09:59", want: false},
		{name: "second shift", date: "2024-03-20", at: "20:00", want: true},
		{name: "between shifts", date: "2024-03-20", at: "16:00", want: false},
		{name: "inactive weekday", date: "2024-03-21", at: "12:00", want: false},
		{name: "weekday without rule", date: "2024-03-24", at: "12:00", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			at, err := ParseClock(tc.at)
			require.NoError(t, err)

			got, err := WithinHours(rules, tc.date, at)

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := WithinHours(rules, "2024-02-30", 12*60)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}

func TestCanTransition(t *testing.T) {
	for _, from := range States() {
		for _, to := range States() {
			got := CanTransition(from, to)
			switch {
			case from == to:
				assert.True(t, got, "%s -> %s", from, to)
			case from.Terminal():
				assert.False(t, got, "%s -> %s", from, to)
			default:
				assert.True(t, got, "%s -> %s", from, to)
			}
		}
	}
}
