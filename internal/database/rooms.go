package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"homestay/internal/model"
)

// CreateRoom inserts a room and fills its ID.
func (db *DB) CreateRoom(ctx context.Context, room *model.Room) error {
	now := time.Now()
	res, err := db.ExecContext(ctx,
		`INSERT INTO rooms (name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		room.Name, room.Description, room.IsActive, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateRoom, room.Name)
		}
		return fmt.Errorf("insert room: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("room id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

// GetRoom returns a room by id.
func (db *DB) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	var desc sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at FROM rooms WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &desc, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	r.Description = desc.String
	return &r, nil
}

// ListRooms returns rooms ordered by name; inactive rooms only when includeInactive is set.
func (db *DB) ListRooms(ctx context.Context, includeInactive bool) ([]model.Room, error) {
	query := `SELECT id, name, description, is_active, created_at, updated_at FROM rooms`
	if !includeInactive {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		var desc sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &desc, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		r.Description = desc.String
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
