package model

import (
	"time"

	"homestay/internal/availability"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

// Room is a bookable unit.
type Room struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Booking is a reservation of a room from check-in to check-out.
type Booking struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	RoomID    int64     `json:"room_id"`
	RoomName  string    `json:"room_name,omitempty"`
	GuestName string    `json:"guest_name"`
	Phone     string    `json:"phone,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Nights    int       `json:"nights"`
	Status    string    `json:"status"` // pending, confirmed, canceled, completed
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the booking still holds the room.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCanceled
}

// Interval returns the booking's occupancy as an availability interval.
func (b *Booking) Interval() availability.Interval {
	return availability.Interval{Start: b.Start, End: b.End}
}

// ActiveIntervals returns the intervals of the bookings that still hold a room.
func ActiveIntervals(bookings []Booking) []availability.Interval {
	out := make([]availability.Interval, 0, len(bookings))
	for i := range bookings {
		if bookings[i].IsActive() {
			out = append(out, bookings[i].Interval())
		}
	}
	return out
}

// ValidStatusTransition reports whether a booking may move from one status to another.
func ValidStatusTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCanceled
	case StatusConfirmed:
		return to == StatusCanceled || to == StatusCompleted
	default:
		return false
	}
}
