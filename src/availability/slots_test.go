package availability

import (
	"calbook/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustLoad(t *testing.T, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("could not load location %s: %s", name, err)
	}
	return loc
}

func interval(start, end time.Time) types.BusyInterval {
	return types.BusyInterval{Start: start, End: end, Source: "test"}
}

func TestIsAvailableDisjoint(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	busy := []types.BusyInterval{
		interval(base, base.Add(30*time.Minute)),
		interval(base.Add(2*time.Hour), base.Add(3*time.Hour)),
	}

	assert.True(t, IsAvailable(busy, base.Add(time.Hour), 30))
	assert.True(t, IsAvailable(busy, base.Add(4*time.Hour), 30))
}

func TestIsAvailableExactMatchConflicts(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	busy := []types.BusyInterval{interval(start, start.Add(30*time.Minute))}

	assert.False(t, IsAvailable(busy, start, 30))
}

func TestIsAvailableCandidateContainsBusy(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	busy := []types.BusyInterval{interval(base.Add(10*time.Minute), base.Add(20*time.Minute))}

	assert.False(t, IsAvailable(busy, base, 60))
}

func TestIsAvailableCandidateInsideBusy(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	busy := []types.BusyInterval{interval(base, base.Add(2*time.Hour))}

	assert.False(t, IsAvailable(busy, base.Add(30*time.Minute), 30))
}

func TestIsAvailableTouchingEndpointsDoNotConflict(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	busy := []types.BusyInterval{interval(base, base.Add(30*time.Minute))}

	// Back-to-back slots on either side of the busy interval.
	assert.True(t, IsAvailable(busy, base.Add(30*time.Minute), 30))
	assert.True(t, IsAvailable(busy, base.Add(-30*time.Minute), 30))
}

func TestIsAvailableNoBusyIntervals(t *testing.T) {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	assert.True(t, IsAvailable(nil, start, 30))
	assert.True(t, IsAvailable([]types.BusyInterval{}, start, 30))
}

func TestRollingCalendarDaysBoundaryInclusive(t *testing.T) {
	loc := mustLoad(t, "UTC")
	// A Monday.
	now := time.Date(2026, 9, 7, 10, 0, 0, 0, loc)
	policy := Policy{Type: types.PERIOD_ROLLING, Days: 5, CountCalendarDays: true}

	saturday := time.Date(2026, 9, 12, 9, 0, 0, 0, loc)
	sunday := time.Date(2026, 9, 13, 9, 0, 0, 0, loc)

	assert.False(t, IsOutOfBounds(saturday, policy, loc, now), "day 5 is on the boundary and bookable")
	assert.True(t, IsOutOfBounds(sunday, policy, loc, now), "day 6 is past the boundary")
}

func TestRollingBusinessDaysSkipsWeekend(t *testing.T) {
	loc := mustLoad(t, "UTC")
	// A Thursday; 2 business days land on Monday.
	now := time.Date(2026, 9, 10, 10, 0, 0, 0, loc)
	policy := Policy{Type: types.PERIOD_ROLLING, Days: 2, CountCalendarDays: false}

	monday := time.Date(2026, 9, 14, 9, 0, 0, 0, loc)
	tuesday := time.Date(2026, 9, 15, 9, 0, 0, 0, loc)

	assert.False(t, IsOutOfBounds(monday, policy, loc, now))
	assert.True(t, IsOutOfBounds(tuesday, policy, loc, now))
}

func TestRangePolicy(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	start := time.Date(2026, 9, 10, 0, 0, 0, 0, loc)
	end := time.Date(2026, 9, 20, 0, 0, 0, 0, loc)
	policy := Policy{Type: types.PERIOD_RANGE, StartDate: &start, EndDate: &end}

	assert.True(t, IsOutOfBounds(time.Date(2026, 9, 9, 9, 0, 0, 0, loc), policy, loc, now))
	assert.False(t, IsOutOfBounds(time.Date(2026, 9, 10, 9, 0, 0, 0, loc), policy, loc, now), "range start day is bookable")
	assert.False(t, IsOutOfBounds(time.Date(2026, 9, 20, 23, 0, 0, 0, loc), policy, loc, now), "range end day is bookable")
	assert.True(t, IsOutOfBounds(time.Date(2026, 9, 21, 9, 0, 0, 0, loc), policy, loc, now))
}

func TestUnlimitedPolicyAlwaysInBounds(t *testing.T) {
	loc := mustLoad(t, "UTC")
	now := time.Date(2026, 9, 7, 10, 0, 0, 0, loc)
	policy := Policy{Type: types.PERIOD_UNLIMITED}

	assert.False(t, IsOutOfBounds(now.AddDate(10, 0, 0), policy, loc, now))
}

func TestIsInPastDayGranularity(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsInPast(now.AddDate(0, 0, -1), now, time.UTC))
	assert.False(t, IsInPast(now.Add(-2*time.Hour), now, time.UTC), "earlier today is not past at day granularity")
	assert.False(t, IsInPast(now.Add(2*time.Hour), now, time.UTC))
}

func TestIsInPastUsesHostZoneDayBoundary(t *testing.T) {
	la := mustLoad(t, "America/Los_Angeles")
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	candidate := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)

	assert.True(t, IsInPast(candidate, now, time.UTC), "yesterday on the UTC calendar")
	assert.False(t, IsInPast(candidate, now, la), "still today for a Pacific host")
}

func TestIsWithinPolicyRejectsPast(t *testing.T) {
	loc := mustLoad(t, "UTC")
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, loc)

	assert.False(t, IsWithinPolicy(now.AddDate(0, 0, -3), Policy{Type: types.PERIOD_UNLIMITED}, loc, now))
	assert.True(t, IsWithinPolicy(now.AddDate(0, 0, 3), Policy{Type: types.PERIOD_UNLIMITED}, loc, now))
}

func TestPadIntervals(t *testing.T) {
	base := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	busy := []types.BusyInterval{interval(base, base.Add(30*time.Minute))}

	padded := PadIntervals(busy, 10)
	assert.Equal(t, base.Add(-10*time.Minute), padded[0].Start)
	assert.Equal(t, base.Add(40*time.Minute), padded[0].End)

	// Zero buffer returns the input untouched.
	assert.Equal(t, busy, PadIntervals(busy, 0))
}
