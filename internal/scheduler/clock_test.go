package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:05", want: 9*60 + 5},
		{in: "9:05", want: 9*60 + 5},
		{in: "23:59", want: 23*60 + 59},
		{in: "19:00:00", want: 19 * 60},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseClock(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClockPastMidnight(t *testing.T) {
	start, err := ParseClock("23:00")
	require.NoError(t, err)

	end := start.Add(90)
	assert.Equal(t, "24:30", end.String())

	parsed, err := ParseEndClock("24:30")
	require.NoError(t, err)
	assert.Equal(t, end, parsed)
	assert.Equal(t, 24, parsed.Hour())
}

func TestWeekdayUsesCalendarDate(t *testing.T) {
	// Parsing through UTC and converting to a western zone would yield Monday.
	weekday, err := Weekday("2024-03-19")
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, weekday)

	loc := time.FixedZone("UTC-5", -5*60*60)
	day, err := ParseDate("2024-03-19", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, day.Weekday())
	assert.Equal(t, 0, day.Hour())
}

func TestStartInstant(t *testing.T) {
	loc := time.FixedZone("CET", 60*60)
	start, err := ParseClock("19:30")
	require.NoError(t, err)

	instant, err := StartInstant("2024-03-19", start, loc)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 19, 19, 30, 0, 0, loc), instant)
	assert.Equal(t, start, ClockOf(instant))
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{Start: 19 * 60, End: 20*60 + 30}

	assert.True(t, base.Overlaps(Interval{Start: 20 * 60, End: 21 * 60}))
	assert.True(t, base.Overlaps(Interval{Start: 18 * 60, End: 23 * 60}))
	assert.False(t, base.Overlaps(Interval{Start: 20*60 + 30, End: 22 * 60}))
	assert.False(t, base.Overlaps(Interval{Start: 17*60 + 30, End: 19 * 60}))
	assert.True(t, base.Contains(19*60))
	assert.False(t, base.Contains(20*60+30))
}
