// Package availability decides whether a prospective stay collides with
// existing bookings and which calendar days are closed for new check-ins.
//
// Two notions live here side by side. The conflict check works on instants:
// the candidate stay runs from check-in to check-out, widened by a buffer, and
// must not intersect any existing booking. The occupied-day set works on whole
// days and is what date pickers gray out. Near midnight they can disagree; both
// are kept.
//
// Every function is pure and safe for concurrent use.
package availability

import (
	"fmt"
	"time"
)

const (
	// DefaultBufferMinutes is the separation required around a new stay.
	DefaultBufferMinutes = 15
)

var (
	// DefaultCheckIn is the check-in clock time.
	DefaultCheckIn = Clock{Hour: 14}
	// DefaultCheckOut is the check-out clock time.
	DefaultCheckOut = Clock{Hour: 12}
)

// Policy carries the site-wide parameters every check is evaluated with.
type Policy struct {
	Buffer   time.Duration
	CheckIn  Clock
	CheckOut Clock
	Location *time.Location
}

// DefaultPolicy uses a 15 minute buffer, 14:00 check-in, 12:00 check-out and the system zone.
func DefaultPolicy() Policy {
	return Policy{
		Buffer:   DefaultBufferMinutes * time.Minute,
		CheckIn:  DefaultCheckIn,
		CheckOut: DefaultCheckOut,
		Location: time.Local,
	}
}

// NewPolicy validates and builds a Policy. A nil location means time.Local.
func NewPolicy(buffer time.Duration, checkIn, checkOut Clock, loc *time.Location) (Policy, error) {
	if buffer < 0 {
		return Policy{}, fmt.Errorf("%w: buffer must not be negative, got %s", ErrInvalidArgument, buffer)
	}
	if loc == nil {
		loc = time.Local
	}
	return Policy{Buffer: buffer, CheckIn: checkIn, CheckOut: checkOut, Location: loc}, nil
}

// Zone returns the location days are evaluated in.
func (p Policy) Zone() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// ParseDay parses a calendar date in the policy location.
func (p Policy) ParseDay(s string) (time.Time, error) {
	return ParseDay(s, p.Zone())
}

func validateNights(nights int) error {
	if nights < 1 {
		return fmt.Errorf("%w: number of nights must be at least 1, got %d", ErrInvalidArgument, nights)
	}
	return nil
}
