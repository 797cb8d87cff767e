package availability

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func utcPolicy() Policy {
	p := DefaultPolicy()
	p.Location = time.UTC
	return p
}

func TestOverlaps(t *testing.T) {
	bStart := at(2025, 12, 22, 14, 0)
	bEnd := at(2025, 12, 24, 12, 0)

	tests := []struct {
		name    string
		aStart  time.Time
		aEnd    time.Time
		buffer  time.Duration
		overlap bool
	}{
		{
			name:    "a ends exactly at buffered start of b",
			aStart:  at(2025, 12, 20, 14, 0),
			aEnd:    at(2025, 12, 22, 13, 45),
			buffer:  15 * time.Minute,
			overlap: false,
		},
		{
			name:    "one minute past buffered start of b",
			aStart:  at(2025, 12, 20, 14, 0),
			aEnd:    at(2025, 12, 22, 13, 46),
			buffer:  15 * time.Minute,
			overlap: true,
		},
		{
			name:    "a starts exactly at buffered end of b",
			aStart:  at(2025, 12, 24, 12, 15),
			aEnd:    at(2025, 12, 25, 12, 0),
			buffer:  15 * time.Minute,
			overlap: false,
		},
		{
			name:    "a starts one minute before buffered end of b",
			aStart:  at(2025, 12, 24, 12, 14),
			aEnd:    at(2025, 12, 25, 12, 0),
			buffer:  15 * time.Minute,
			overlap: true,
		},
		{
			name:    "a contained in b",
			aStart:  at(2025, 12, 23, 0, 0),
			aEnd:    at(2025, 12, 23, 6, 0),
			overlap: true,
		},
		{
			name:    "a contains b",
			aStart:  at(2025, 12, 21, 0, 0),
			aEnd:    at(2025, 12, 26, 0, 0),
			overlap: true,
		},
		{
			name:    "touching without buffer",
			aStart:  at(2025, 12, 24, 12, 0),
			aEnd:    at(2025, 12, 25, 12, 0),
			overlap: false,
		},
		{
			name:    "far apart",
			aStart:  at(2026, 1, 5, 14, 0),
			aEnd:    at(2026, 1, 6, 12, 0),
			buffer:  15 * time.Minute,
			overlap: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlap, Overlaps(tt.aStart, tt.aEnd, bStart, bEnd, tt.buffer))
		})
	}
}

func TestOverlaps_SymmetricWithoutBuffer(t *testing.T) {
	intervals := [][2]time.Time{
		{at(2025, 12, 22, 14, 0), at(2025, 12, 24, 12, 0)},
		{at(2025, 12, 24, 12, 0), at(2025, 12, 25, 12, 0)},
		{at(2025, 12, 23, 8, 0), at(2025, 12, 23, 9, 0)},
		{at(2025, 12, 20, 0, 0), at(2025, 12, 22, 14, 1)},
	}
	for i, a := range intervals {
		for j, b := range intervals {
			assert.Equal(t,
				Overlaps(a[0], a[1], b[0], b[1], 0),
				Overlaps(b[0], b[1], a[0], a[1], 0),
				"intervals %d and %d", i, j)
		}
	}
}

func TestBuildStayWindow(t *testing.T) {
	p := utcPolicy()

	w, err := p.BuildStayWindow("2025-12-22", 2)
	require.NoError(t, err)
	assert.Equal(t, at(2025, 12, 22, 13, 45), w.Start)
	assert.Equal(t, at(2025, 12, 24, 12, 15), w.End)
	assert.Equal(t, at(2025, 12, 22, 14, 0), w.CheckIn(p))
	assert.Equal(t, at(2025, 12, 24, 12, 0), w.CheckOut(p))

	t.Run("zero buffer", func(t *testing.T) {
		noBuffer := p
		noBuffer.Buffer = 0
		w, err := noBuffer.BuildStayWindow("2025-12-31", 1)
		require.NoError(t, err)
		assert.Equal(t, at(2025, 12, 31, 14, 0), w.Start)
		assert.Equal(t, at(2026, 1, 1, 12, 0), w.End)
	})

	t.Run("non-positive nights", func(t *testing.T) {
		_, err := p.BuildStayWindow("2025-12-22", 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		_, err = p.BuildStayWindow("2025-12-22", -2)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("invalid date", func(t *testing.T) {
		for _, s := range []string{"", "2025-13-01", "22/12/2025", "2025-02-30"} {
			_, err := p.BuildStayWindow(s, 1)
			assert.ErrorIs(t, err, ErrInvalidDate, s)
		}
	})
}

func TestBuildStayWindow_ExplicitLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	p := DefaultPolicy()
	p.Location = loc

	w, err := p.BuildStayWindow("2025-12-22", 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 22, 13, 45, 0, 0, loc), w.Start)
	assert.Equal(t, at(2025, 12, 22, 6, 45), w.Start.UTC())
}

func TestHasConflict_MultiNight(t *testing.T) {
	p := utcPolicy()
	existing := []Interval{
		{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 24, 12, 0)},
	}

	tests := []struct {
		name     string
		date     string
		nights   int
		conflict bool
	}{
		{name: "check-in day before, two nights", date: "2025-12-21", nights: 2, conflict: true},
		{name: "same check-in day, two nights", date: "2025-12-22", nights: 2, conflict: true},
		{name: "check-in on checkout day", date: "2025-12-24", nights: 1, conflict: false},
		{name: "night before check-in ends before arrival", date: "2025-12-21", nights: 1, conflict: false},
		{name: "two nights before", date: "2025-12-20", nights: 1, conflict: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.HasConflict(existing, tt.date, tt.nights)
			require.NoError(t, err)
			assert.Equal(t, tt.conflict, got)
		})
	}
}

func TestHasConflict_Buffer(t *testing.T) {
	p := utcPolicy()

	t.Run("checkout at 12:14 leaves room", func(t *testing.T) {
		existing := []Interval{{Start: at(2025, 12, 23, 14, 0), End: at(2025, 12, 24, 12, 14)}}
		got, err := p.HasConflict(existing, "2025-12-24", 1)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("checkout at 13:50 collides with buffered check-in", func(t *testing.T) {
		existing := []Interval{{Start: at(2025, 12, 23, 14, 0), End: at(2025, 12, 24, 13, 50)}}
		got, err := p.HasConflict(existing, "2025-12-24", 1)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("checkout exactly at buffered check-in", func(t *testing.T) {
		existing := []Interval{{Start: at(2025, 12, 23, 14, 0), End: at(2025, 12, 24, 13, 45)}}
		got, err := p.HasConflict(existing, "2025-12-24", 1)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("next guest arriving inside buffer after checkout", func(t *testing.T) {
		existing := []Interval{{Start: at(2025, 12, 25, 12, 10), End: at(2025, 12, 26, 12, 0)}}
		got, err := p.HasConflict(existing, "2025-12-24", 1)
		require.NoError(t, err)
		assert.True(t, got)

		noBuffer := p
		noBuffer.Buffer = 0
		got, err = noBuffer.HasConflict(existing, "2025-12-24", 1)
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestFirstConflict(t *testing.T) {
	p := utcPolicy()
	existing := []Interval{
		{Start: at(2025, 12, 1, 14, 0), End: at(2025, 12, 2, 12, 0)},
		{Start: at(2025, 12, 10, 14, 0), End: at(2025, 12, 12, 12, 0)},
		{Start: at(2025, 12, 11, 14, 0), End: at(2025, 12, 13, 12, 0)},
	}

	idx, err := p.FirstConflict(existing, "2025-12-11", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = p.FirstConflict(existing, "2025-12-05", 3)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestHasConflict_EmptyAndInvalid(t *testing.T) {
	p := utcPolicy()

	got, err := p.HasConflict(nil, "2025-12-24", 3)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = p.HasConflict(nil, "2025-12-24", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = p.HasConflict(nil, "not-a-date", 1)
	assert.ErrorIs(t, err, ErrInvalidDate)

	reversed := []Interval{{Start: at(2025, 12, 24, 12, 0), End: at(2025, 12, 22, 14, 0)}}
	_, err = p.HasConflict(reversed, "2025-12-01", 1)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	zeroLength := []Interval{{Start: at(2025, 12, 24, 12, 0), End: at(2025, 12, 24, 12, 0)}}
	_, err = p.HasConflict(zeroLength, "2025-12-01", 1)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestHasConflict_Idempotent(t *testing.T) {
	p := utcPolicy()
	existing := []Interval{{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 24, 12, 0)}}

	first, err := p.HasConflict(existing, "2025-12-23", 1)
	require.NoError(t, err)
	second, err := p.HasConflict(existing, "2025-12-23", 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, at(2025, 12, 22, 14, 0), existing[0].Start)
}

func TestOccupiedDays(t *testing.T) {
	p := utcPolicy()

	tests := []struct {
		name     string
		bookings []Interval
		expected []string
	}{
		{
			name:     "no bookings",
			bookings: nil,
			expected: []string{},
		},
		{
			name:     "single night occupies check-in day only",
			bookings: []Interval{{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 23, 12, 0)}},
			expected: []string{"2025-12-22"},
		},
		{
			name:     "two nights",
			bookings: []Interval{{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 24, 12, 0)}},
			expected: []string{"2025-12-22", "2025-12-23"},
		},
		{
			name:     "same-day booking adds nothing",
			bookings: []Interval{{Start: at(2025, 12, 22, 9, 0), End: at(2025, 12, 22, 18, 0)}},
			expected: []string{},
		},
		{
			name:     "across month and year end",
			bookings: []Interval{{Start: at(2025, 12, 30, 14, 0), End: at(2026, 1, 2, 12, 0)}},
			expected: []string{"2025-12-30", "2025-12-31", "2026-01-01"},
		},
		{
			name: "union collapses duplicates",
			bookings: []Interval{
				{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 24, 12, 0)},
				{Start: at(2025, 12, 23, 14, 0), End: at(2025, 12, 25, 12, 0)},
			},
			expected: []string{"2025-12-22", "2025-12-23", "2025-12-24"},
		},
		{
			name:     "midnight boundaries",
			bookings: []Interval{{Start: at(2025, 12, 22, 0, 0), End: at(2025, 12, 23, 0, 0)}},
			expected: []string{"2025-12-22"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := p.OccupiedDays(tt.bookings)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, days.Keys())
			assert.Len(t, days, len(tt.expected))
		})
	}
}

func TestOccupiedDays_InvalidBooking(t *testing.T) {
	p := utcPolicy()
	_, err := p.OccupiedDays([]Interval{{Start: at(2025, 12, 23, 0, 0), End: at(2025, 12, 22, 0, 0)}})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestOccupiedDays_UsesPolicyLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	p := DefaultPolicy()
	p.Location = loc

	// 2025-12-22 20:00 UTC is 2025-12-23 03:00 in UTC+7.
	days, err := p.OccupiedDays([]Interval{{Start: at(2025, 12, 22, 20, 0), End: at(2025, 12, 24, 5, 0)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12-23"}, days.Keys())
}

func TestOccupiedDays_DaylightSaving(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	p := DefaultPolicy()
	p.Location = loc

	booking := Interval{
		Start: time.Date(2025, 3, 29, 14, 0, 0, 0, loc),
		End:   time.Date(2025, 4, 1, 12, 0, 0, 0, loc),
	}
	days, err := p.OccupiedDays([]Interval{booking})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-29", "2025-03-30", "2025-03-31"}, days.Keys())

	w, err := p.BuildStayWindow("2025-03-29", 2)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 31, 12, 15, 0, 0, loc), w.End)
}

func TestIsDateDisabled(t *testing.T) {
	p := utcPolicy()
	bookings := []Interval{{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 24, 12, 0)}}

	tests := []struct {
		name     string
		date     string
		nights   int
		disabled bool
	}{
		{name: "check-in day", date: "2025-12-22", nights: 1, disabled: true},
		{name: "middle day", date: "2025-12-23", nights: 1, disabled: true},
		{name: "checkout day is free", date: "2025-12-24", nights: 1, disabled: false},
		{name: "day before, one night", date: "2025-12-21", nights: 1, disabled: false},
		{name: "day before, two nights runs into booking", date: "2025-12-21", nights: 2, disabled: true},
		{name: "long stay starting before", date: "2025-12-15", nights: 10, disabled: true},
		{name: "after booking", date: "2025-12-25", nights: 3, disabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.IsDateDisabled(bookings, tt.date, tt.nights)
			require.NoError(t, err)
			assert.Equal(t, tt.disabled, got)
		})
	}
}

func TestIsDateDisabled_CheckoutDayOfSingleNight(t *testing.T) {
	p := utcPolicy()
	bookings := []Interval{{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 23, 12, 0)}}

	got, err := p.IsDateDisabled(bookings, "2025-12-23", 1)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = p.IsDateDisabled(bookings, "2025-12-22", 1)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIsDateDisabled_EmptyAndInvalid(t *testing.T) {
	p := utcPolicy()

	got, err := p.IsDateDisabled(nil, "2025-12-24", 5)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = p.IsDateDisabled(nil, "2025-12-24", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = p.IsDateDisabled(nil, "24.12.2025", 1)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestIsDisabledIn_ReusesSet(t *testing.T) {
	p := utcPolicy()
	days := NewDaySet("2025-12-22", "2025-12-23")

	for date, want := range map[string]bool{
		"2025-12-20": false,
		"2025-12-22": true,
		"2025-12-23": true,
		"2025-12-24": false,
	} {
		got, err := p.IsDisabledIn(days, date, 1)
		require.NoError(t, err)
		assert.Equal(t, want, got, date)
	}
}

// The instant check and the day check answer different questions; a
// same-day booking shows where they part ways.
func TestConflictAndDisabledCanDisagree(t *testing.T) {
	p := utcPolicy()
	bookings := []Interval{{Start: at(2025, 12, 24, 0, 30), End: at(2025, 12, 24, 11, 0)}}

	conflict, err := p.HasConflict(bookings, "2025-12-23", 1)
	require.NoError(t, err)
	assert.True(t, conflict)

	disabled, err := p.IsDateDisabled(bookings, "2025-12-23", 1)
	require.NoError(t, err)
	assert.False(t, disabled)

	// A late checkout leaves its checkout day open in the set but still
	// clashes on instants.
	late := []Interval{{Start: at(2025, 12, 22, 14, 0), End: at(2025, 12, 23, 23, 0)}}
	conflict, err = p.HasConflict(late, "2025-12-23", 1)
	require.NoError(t, err)
	assert.True(t, conflict)

	disabled, err = p.IsDateDisabled(late, "2025-12-23", 1)
	require.NoError(t, err)
	assert.False(t, disabled)
}

func TestParseInstant(t *testing.T) {
	loc := time.UTC
	for _, s := range []string{"2025-12-24T12:00:00", "2025-12-24T12:00", "2025-12-24 12:00:00", " 2025-12-24 12:00 "} {
		got, err := ParseInstant(s, loc)
		require.NoError(t, err, s)
		assert.Equal(t, at(2025, 12, 24, 12, 0), got, s)
	}

	for _, s := range []string{"", "2025-12-24", "2025-12-24T25:00:00", "yesterday"} {
		_, err := ParseInstant(s, loc)
		assert.ErrorIs(t, err, ErrInvalidDate, s)
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("2025-12-22T14:00:00", "2025-12-24T12:00:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, at(2025, 12, 22, 14, 0), iv.Start)
	assert.Equal(t, at(2025, 12, 24, 12, 0), iv.End)

	_, err = ParseInterval("2025-12-24T12:00:00", "2025-12-22T14:00:00", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = ParseInterval("2025-12-22T14:00:00", "garbage", time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("14:00")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 14}, c)
	assert.Equal(t, "14:00", c.String())

	for _, s := range []string{"", "14", "24:00", "12:60", "ab:cd"} {
		_, err := ParseClock(s)
		assert.ErrorIs(t, err, ErrInvalidArgument, s)
	}
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(30*time.Minute, Clock{Hour: 15}, Clock{Hour: 11}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Local, p.Location)
	assert.Equal(t, 30*time.Minute, p.Buffer)

	_, err = NewPolicy(-time.Minute, DefaultCheckIn, DefaultCheckOut, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
