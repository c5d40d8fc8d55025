package testfixtures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.True(t, clock.Now().Equal(ReferenceTime()))
	assert.Equal(t, time.Friday, clock.Now().Weekday())
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	assert.True(t, clock.Advance(90*time.Minute).Equal(start.Add(90*time.Minute)))

	clock.Set(start.Add(2 * time.Hour))
	assert.True(t, clock.Now().Equal(start.Add(2*time.Hour)))
}

func TestClockNowFuncTracksUpdates(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	assert.True(t, nowFn().Equal(clock.Now()))

	var nilClock *Clock
	assert.WithinDuration(t, time.Now(), nilClock.NowFunc()(), time.Minute)
}

func TestClockSetWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	clock := NewClock(time.Date(2024, time.March, 1, 8, 0, 0, 0, loc))

	require.NoError(t, clock.SetWallClock("2024-03-16", "18:45"))
	assert.Equal(t, time.Date(2024, time.March, 16, 18, 45, 0, 0, loc), clock.Now())

	assert.Error(t, clock.SetWallClock("2024-03-16", "24:00"))
	assert.Error(t, clock.SetWallClock("16/03/2024", "18:00"))
	assert.Equal(t, time.Date(2024, time.March, 16, 18, 45, 0, 0, loc), clock.Now())
}
