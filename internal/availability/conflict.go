package availability

import (
	"fmt"
	"time"
)

// StayWindow is the buffered footprint of a candidate reservation.
type StayWindow struct {
	Start time.Time
	End   time.Time
}

// CheckIn returns the unbuffered check-in instant.
func (w StayWindow) CheckIn(p Policy) time.Time {
	return w.Start.Add(p.Buffer)
}

// CheckOut returns the unbuffered check-out instant.
func (w StayWindow) CheckOut(p Policy) time.Time {
	return w.End.Add(-p.Buffer)
}

// BuildStayWindow derives the window for checking in on date and staying
// nights nights: check-in at p.CheckIn on date, check-out at p.CheckOut on
// date+nights, both pushed outward by p.Buffer.
func (p Policy) BuildStayWindow(date string, nights int) (StayWindow, error) {
	if err := validateNights(nights); err != nil {
		return StayWindow{}, err
	}
	loc := p.Zone()
	day, err := ParseDay(date, loc)
	if err != nil {
		return StayWindow{}, err
	}
	checkIn := p.CheckIn.On(day, loc)
	checkOut := p.CheckOut.On(AddDays(day, nights), loc)
	return StayWindow{
		Start: checkIn.Add(-p.Buffer),
		End:   checkOut.Add(p.Buffer),
	}, nil
}

// FirstConflict returns the index of the first booking in existing that
// intersects the stay window for date/nights, or -1 when none does.
//
// The buffer is already part of the request window, so each booking is
// compared on its raw interval.
func (p Policy) FirstConflict(existing []Interval, date string, nights int) (int, error) {
	w, err := p.BuildStayWindow(date, nights)
	if err != nil {
		return -1, err
	}
	for i, b := range existing {
		if err := b.Validate(); err != nil {
			return -1, fmt.Errorf("booking %d: %w", i, err)
		}
	}
	for i, b := range existing {
		if Overlaps(w.Start, w.End, b.Start, b.End, 0) {
			return i, nil
		}
	}
	return -1, nil
}

// HasConflict reports whether the stay for date/nights collides with any existing booking.
func (p Policy) HasConflict(existing []Interval, date string, nights int) (bool, error) {
	idx, err := p.FirstConflict(existing, date, nights)
	if err != nil {
		return false, err
	}
	return idx >= 0, nil
}
