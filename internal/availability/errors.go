package availability

import "errors"

var (
	// ErrInvalidDate is returned for date or instant strings that cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidArgument is returned for non-positive night counts and negative buffers.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidInterval is returned for bookings whose end is not after their start.
	ErrInvalidInterval = errors.New("invalid interval")
)
