package availability

import (
	"fmt"
	"time"
)

// Interval is an existing booking's occupancy of a unit.
type Interval struct {
	Start time.Time
	End   time.Time
}

// ParseInterval parses start and end as local instants in loc and
// rejects intervals whose end is not strictly after start.
func ParseInterval(start, end string, loc *time.Location) (Interval, error) {
	s, err := ParseInstant(start, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("booking start: %w", err)
	}
	e, err := ParseInstant(end, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("booking end: %w", err)
	}
	iv := Interval{Start: s, End: e}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate rejects zero instants and intervals with end <= start.
func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return fmt.Errorf("%w: missing start or end", ErrInvalidDate)
	}
	if !iv.End.After(iv.Start) {
		return fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidInterval, iv.End.Format(InstantLayout), iv.Start.Format(InstantLayout))
	}
	return nil
}

// Overlaps reports whether [aStart, aEnd] intersects [bStart, bEnd] once B is
// widened by buffer on both ends. The test is strict: intervals that only
// touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time, buffer time.Duration) bool {
	bStart = bStart.Add(-buffer)
	bEnd = bEnd.Add(buffer)
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
