package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homestay/internal/availability"
	"homestay/internal/model"
)

const bookingColumns = `b.id, b.reference, b.room_id, r.name, b.guest_name, b.phone,
	b.start_time, b.end_time, b.nights, b.status, b.comment, b.created_at, b.updated_at`

const bookingFrom = ` FROM bookings b JOIN rooms r ON r.id = b.room_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var phone, comment sql.NullString
	var start, end string
	if err := row.Scan(
		&b.ID, &b.Reference, &b.RoomID, &b.RoomName, &b.GuestName, &phone,
		&start, &end, &b.Nights, &b.Status, &comment, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	iv, err := availability.ParseInterval(start, end, db.loc)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", b.ID, err)
	}
	b.Start, b.End = iv.Start, iv.End
	b.Phone = phone.String
	b.Comment = comment.String
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := db.scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+bookingFrom+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// GetBookingByReference returns a booking by its public reference.
func (db *DB) GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error) {
	b, err := db.scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+bookingFrom+` WHERE b.reference = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListRoomBookings returns the room's bookings that still hold it, ordered by start.
func (db *DB) ListRoomBookings(ctx context.Context, roomID int64) ([]model.Booking, error) {
	return db.listRoomBookings(ctx, db.DB, roomID)
}

func (db *DB) listRoomBookings(ctx context.Context, q querier, roomID int64) ([]model.Booking, error) {
	return db.queryBookings(ctx, q,
		`SELECT `+bookingColumns+bookingFrom+` WHERE b.room_id = ? AND b.status != ? ORDER BY b.start_time, b.id`,
		roomID, model.StatusCanceled,
	)
}

// ListBookingsInRange returns all bookings, canceled included, that overlap [from, to).
func (db *DB) ListBookingsInRange(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	// Stored instants share one layout and zone, so string order is time order.
	return db.queryBookings(ctx, db.DB,
		`SELECT `+bookingColumns+bookingFrom+` WHERE b.start_time < ? AND b.end_time > ? ORDER BY b.start_time, b.id`,
		availability.FormatInstant(to, db.loc), availability.FormatInstant(from, db.loc),
	)
}

// CreateBookingChecked loads the room's active bookings, passes them to
// check and inserts b only if check returns nil. Both steps run in one
// immediate transaction, so concurrent reservations are serialized.
func (db *DB) CreateBookingChecked(ctx context.Context, b *model.Booking, check func(existing []model.Booking) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var roomActive bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM rooms WHERE id = ?`, b.RoomID).Scan(&roomActive)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !roomActive) {
		return fmt.Errorf("room %d: %w", b.RoomID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get room: %w", err)
	}

	existing, err := db.listRoomBookings(ctx, tx, b.RoomID)
	if err != nil {
		return err
	}
	if check != nil {
		if err := check(existing); err != nil {
			return err
		}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (reference, room_id, guest_name, phone, start_time, end_time, nights, status, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.RoomID, b.GuestName, b.Phone,
		availability.FormatInstant(b.Start, db.loc), availability.FormatInstant(b.End, db.loc),
		b.Nights, b.Status, b.Comment, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// UpdateBookingStatus sets the status of a booking.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return nil
}
