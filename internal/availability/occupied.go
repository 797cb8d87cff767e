package availability

import (
	"fmt"
	"sort"
)

// DaySet is a set of day keys. Treat it as read-only once built.
type DaySet map[string]struct{}

// NewDaySet builds a set from keys.
func NewDaySet(keys ...string) DaySet {
	s := make(DaySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether key is in the set.
func (s DaySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the day keys in ascending order.
func (s DaySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OccupiedDays returns the days on which the bookings hold the unit: from the
// check-in day up to but excluding the check-out day, evaluated in the policy
// location. A booking that starts and ends on the same day adds nothing.
func (p Policy) OccupiedDays(bookings []Interval) (DaySet, error) {
	loc := p.Zone()
	days := make(DaySet)
	for i, b := range bookings {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("booking %d: %w", i, err)
		}
		first := StartOfDay(b.Start.In(loc))
		checkoutDay := StartOfDay(b.End.In(loc))
		for d := first; d.Before(checkoutDay); d = AddDays(d, 1) {
			days[DayKey(d)] = struct{}{}
		}
	}
	return days, nil
}

// IsDisabledIn reports whether any night of the stay starting on date falls
// on a day in days. Build days once with OccupiedDays when checking many dates.
func (p Policy) IsDisabledIn(days DaySet, date string, nights int) (bool, error) {
	if err := validateNights(nights); err != nil {
		return false, err
	}
	day, err := ParseDay(date, p.Zone())
	if err != nil {
		return false, err
	}
	for n := 0; n < nights; n++ {
		if days.Contains(DayKey(AddDays(day, n))) {
			return true, nil
		}
	}
	return false, nil
}

// IsDateDisabled builds the occupied-day set for bookings and tests the stay against it.
func (p Policy) IsDateDisabled(bookings []Interval, date string, nights int) (bool, error) {
	days, err := p.OccupiedDays(bookings)
	if err != nil {
		return false, err
	}
	return p.IsDisabledIn(days, date, nights)
}
