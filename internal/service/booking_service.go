package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homestay/internal/availability"
	"homestay/internal/database"
	"homestay/internal/metrics"
	"homestay/internal/model"
)

var (
	ErrDatesUnavailable  = errors.New("dates unavailable")
	ErrNotFound          = database.ErrNotFound
	ErrTooManyNights     = errors.New("too many nights")
	ErrRangeTooLong      = errors.New("date range too long")
	ErrAlreadyCanceled   = errors.New("booking already canceled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRequest    = errors.New("invalid request")
)

type BookingRepository interface {
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	ListRooms(ctx context.Context, includeInactive bool) ([]model.Room, error)
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error)
	ListRoomBookings(ctx context.Context, roomID int64) ([]model.Booking, error)
	ListBookingsInRange(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	CreateBookingChecked(ctx context.Context, b *model.Booking, check func(existing []model.Booking) error) error
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
}

// OccupancyCache stores occupied-day sets per room. Misses are not errors.
// Get reports the room's version; Set stores only while that version is
// current, and Invalidate moves it forward.
type OccupancyCache interface {
	Get(ctx context.Context, roomID int64) (availability.DaySet, int64, bool)
	Set(ctx context.Context, roomID int64, days availability.DaySet, version int64)
	Invalidate(ctx context.Context, roomID int64)
}

type Notifier interface {
	BookingCreated(ctx context.Context, b *model.Booking) error
}

// ConflictResult reports both availability notions for one candidate stay.
// Conflict is the instant-level answer used to accept a reservation;
// Disabled is the day-level answer shown in the date picker. They can differ.
type ConflictResult struct {
	RoomID       int64     `json:"room_id"`
	Date         string    `json:"date"`
	Nights       int       `json:"nights"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	Conflict     bool      `json:"conflict"`
	ConflictWith string    `json:"conflict_with,omitempty"`
	Disabled     bool      `json:"disabled"`
}

// DayStatus is one cell of a room calendar.
type DayStatus struct {
	Date     string `json:"date"`
	Occupied bool   `json:"occupied"`
	Disabled bool   `json:"disabled"`
}

type ReserveRequest struct {
	RoomID    int64
	GuestName string
	Phone     string
	Date      string
	Nights    int
	Comment   string
}

type BookingService struct {
	repo            BookingRepository
	cache           OccupancyCache
	notifier        Notifier
	policy          availability.Policy
	maxNights       int
	calendarMaxDays int
	logger          *zerolog.Logger
	now             func() time.Time
}

func NewBookingService(
	repo BookingRepository,
	cache OccupancyCache,
	notifier Notifier,
	policy availability.Policy,
	maxNights int,
	calendarMaxDays int,
	logger *zerolog.Logger,
) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		repo:            repo,
		cache:           cache,
		notifier:        notifier,
		policy:          policy,
		maxNights:       maxNights,
		calendarMaxDays: calendarMaxDays,
		logger:          logger,
		now:             time.Now,
	}
}

// Policy returns the availability policy the service checks against.
func (s *BookingService) Policy() availability.Policy {
	return s.policy
}

func (s *BookingService) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.repo.ListRooms(ctx, false)
}

func (s *BookingService) GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error) {
	return s.repo.GetBookingByReference(ctx, ref)
}

func (s *BookingService) validateNights(nights int) error {
	if nights < 1 {
		return fmt.Errorf("%w: number of nights must be at least 1, got %d", availability.ErrInvalidArgument, nights)
	}
	if s.maxNights > 0 && nights > s.maxNights {
		return fmt.Errorf("%w: %d > %d", ErrTooManyNights, nights, s.maxNights)
	}
	return nil
}

// activeIntervals keeps bookings and their intervals index-aligned.
func activeIntervals(bookings []model.Booking) ([]model.Booking, []availability.Interval) {
	active := make([]model.Booking, 0, len(bookings))
	for i := range bookings {
		if bookings[i].IsActive() {
			active = append(active, bookings[i])
		}
	}
	return active, model.ActiveIntervals(active)
}

// occupiedDays returns the room's occupied-day set, from the cache when possible.
// The cache version is read before the bookings are loaded.
func (s *BookingService) occupiedDays(ctx context.Context, roomID int64) (availability.DaySet, error) {
	version := int64(-1)
	if s.cache != nil {
		days, v, ok := s.cache.Get(ctx, roomID)
		if ok {
			return days, nil
		}
		version = v
	}
	bookings, err := s.repo.ListRoomBookings(ctx, roomID)
	if err != nil {
		return nil, err
	}
	_, intervals := activeIntervals(bookings)
	days, err := s.policy.OccupiedDays(intervals)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, roomID, days, version)
	}
	return days, nil
}

func (s *BookingService) invalidate(ctx context.Context, roomID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, roomID)
	}
}

// CheckConflict evaluates a candidate stay against the room's current bookings.
func (s *BookingService) CheckConflict(ctx context.Context, roomID int64, date string, nights int) (ConflictResult, error) {
	if err := s.validateNights(nights); err != nil {
		return ConflictResult{}, err
	}
	window, err := s.policy.BuildStayWindow(date, nights)
	if err != nil {
		return ConflictResult{}, err
	}
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return ConflictResult{}, err
	}
	bookings, err := s.repo.ListRoomBookings(ctx, roomID)
	if err != nil {
		return ConflictResult{}, err
	}
	active, intervals := activeIntervals(bookings)

	idx, err := s.policy.FirstConflict(intervals, date, nights)
	if err != nil {
		return ConflictResult{}, err
	}
	disabled, err := s.policy.IsDateDisabled(intervals, date, nights)
	if err != nil {
		return ConflictResult{}, err
	}

	res := ConflictResult{
		RoomID:   roomID,
		Date:     date,
		Nights:   nights,
		CheckIn:  window.CheckIn(s.policy),
		CheckOut: window.CheckOut(s.policy),
		Conflict: idx >= 0,
		Disabled: disabled,
	}
	if res.Conflict {
		res.ConflictWith = active[idx].Reference
	}
	metrics.IncConflictCheck(res.Conflict)
	return res, nil
}

// parseRange parses an inclusive day range and bounds its length.
func (s *BookingService) parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := s.policy.ParseDay(from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
	}
	end, err := s.policy.ParseDay(to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", availability.ErrInvalidArgument)
	}
	if s.calendarMaxDays > 0 && !availability.AddDays(start, s.calendarMaxDays).After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: at most %d days", ErrRangeTooLong, s.calendarMaxDays)
	}
	return start, end, nil
}

// Calendar returns, for every day in [from, to], whether the room is
// occupied that night and whether a stay of nights nights starting that day
// must be disabled in the picker.
func (s *BookingService) Calendar(ctx context.Context, roomID int64, from, to string, nights int) ([]DayStatus, error) {
	if err := s.validateNights(nights); err != nil {
		return nil, err
	}
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	days, err := s.occupiedDays(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var out []DayStatus
	for d := start; !d.After(end); d = availability.AddDays(d, 1) {
		key := availability.DayKey(d)
		disabled, err := s.policy.IsDisabledIn(days, key, nights)
		if err != nil {
			return nil, err
		}
		out = append(out, DayStatus{Date: key, Occupied: days.Contains(key), Disabled: disabled})
	}
	return out, nil
}

// Reserve creates a pending booking when the stay does not clash with any
// active booking of the room. The check and the insert share a transaction.
func (s *BookingService) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	guest := strings.TrimSpace(req.GuestName)
	if guest == "" {
		return nil, fmt.Errorf("%w: guest name is required", ErrInvalidRequest)
	}
	if err := s.validateNights(req.Nights); err != nil {
		metrics.IncBookingRejected("invalid")
		return nil, err
	}
	window, err := s.policy.BuildStayWindow(req.Date, req.Nights)
	if err != nil {
		metrics.IncBookingRejected("invalid")
		return nil, err
	}
	checkIn := window.CheckIn(s.policy)
	today := availability.StartOfDay(s.now().In(s.policy.Zone()))
	if availability.StartOfDay(checkIn).Before(today) {
		metrics.IncBookingRejected("past_date")
		return nil, fmt.Errorf("%w: check-in date %s is in the past", ErrInvalidRequest, req.Date)
	}

	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, fmt.Errorf("room %d: %w", req.RoomID, ErrNotFound)
	}

	booking := &model.Booking{
		Reference: uuid.NewString(),
		RoomID:    room.ID,
		RoomName:  room.Name,
		GuestName: guest,
		Phone:     strings.TrimSpace(req.Phone),
		Start:     checkIn,
		End:       window.CheckOut(s.policy),
		Nights:    req.Nights,
		Status:    model.StatusPending,
		Comment:   strings.TrimSpace(req.Comment),
	}

	err = s.repo.CreateBookingChecked(ctx, booking, func(existing []model.Booking) error {
		active, intervals := activeIntervals(existing)
		idx, err := s.policy.FirstConflict(intervals, req.Date, req.Nights)
		if err != nil {
			return err
		}
		if idx >= 0 {
			return fmt.Errorf("%w: overlaps booking %s", ErrDatesUnavailable, active[idx].Reference)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDatesUnavailable) {
			metrics.IncBookingRejected("dates_unavailable")
			s.logger.Info().Int64("room_id", req.RoomID).Str("date", req.Date).Int("nights", req.Nights).Msg("reservation rejected: dates unavailable")
		}
		return nil, err
	}

	s.invalidate(ctx, booking.RoomID)
	metrics.IncBookingCreated(booking.Status)
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Int64("room_id", booking.RoomID).
		Time("check_in", booking.Start).
		Time("check_out", booking.End).
		Msg("booking created")

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, booking); err != nil {
			s.logger.Warn().Err(err).Str("reference", booking.Reference).Msg("failed to notify managers")
		}
	}
	return booking, nil
}

func (s *BookingService) Cancel(ctx context.Context, id int64) (*model.Booking, error) {
	return s.setStatus(ctx, id, model.StatusCanceled)
}

func (s *BookingService) Confirm(ctx context.Context, id int64) (*model.Booking, error) {
	return s.setStatus(ctx, id, model.StatusConfirmed)
}

// Complete marks a confirmed booking as completed once its check-out has passed.
func (s *BookingService) Complete(ctx context.Context, id int64) (*model.Booking, error) {
	return s.setStatus(ctx, id, model.StatusCompleted)
}

func (s *BookingService) setStatus(ctx context.Context, id int64, status string) (*model.Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusCanceled {
		return nil, ErrAlreadyCanceled
	}
	if !model.ValidStatusTransition(b.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, status)
	}
	if status == model.StatusCompleted && s.now().Before(b.End) {
		return nil, fmt.Errorf("%w: stay ends at %s", ErrInvalidTransition, b.End.In(s.policy.Zone()).Format(time.RFC3339))
	}
	if err := s.repo.UpdateBookingStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.invalidate(ctx, b.RoomID)
	metrics.IncStatusChanged(status)
	s.logger.Info().Int64("booking_id", id).Str("from", b.Status).Str("to", status).Msg("booking status changed")

	b.Status = status
	return b, nil
}

// BookingsBetween returns the bookings touching the inclusive day range
// [from, to] together with the range's day keys.
func (s *BookingService) BookingsBetween(ctx context.Context, from, to string) ([]model.Booking, []string, error) {
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return nil, nil, err
	}
	bookings, err := s.repo.ListBookingsInRange(ctx, start, availability.AddDays(end, 1))
	if err != nil {
		return nil, nil, err
	}
	var keys []string
	for d := start; !d.After(end); d = availability.AddDays(d, 1) {
		keys = append(keys, availability.DayKey(d))
	}
	return bookings, keys, nil
}
