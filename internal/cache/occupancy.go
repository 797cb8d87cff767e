package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homestay/internal/availability"
)

// OccupancyCache keeps each room's occupied-day set in Redis so calendar
// requests don't rebuild it from every booking. Redis failures are logged
// and treated as misses.
//
// Every room also has a version counter bumped by Invalidate. A set built
// from the database is stored only if the version it was read under is
// still current, so a reader racing a booking write can't put back a set
// that misses the new booking.
type OccupancyCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

var errStaleVersion = errors.New("occupancy version changed")

// NewOccupancyCache returns a cache; a nil client or non-positive ttl disables it.
func NewOccupancyCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *OccupancyCache {
	return &OccupancyCache{redis: client, ttl: ttl, logger: logger}
}

func (c *OccupancyCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func occupancyKey(roomID int64) string {
	return fmt.Sprintf("occupancy:%d", roomID)
}

func versionKey(roomID int64) string {
	return fmt.Sprintf("occupancy:%d:version", roomID)
}

// Get returns the cached set for roomID and the room's current version.
// On a miss, pass the version to Set after loading the bookings.
// A version of -1 means it could not be read; Set ignores it.
func (c *OccupancyCache) Get(ctx context.Context, roomID int64) (availability.DaySet, int64, bool) {
	if !c.enabled() {
		return nil, -1, false
	}
	vals, err := c.redis.MGet(ctx, occupancyKey(roomID), versionKey(roomID)).Result()
	if err != nil {
		c.warn(err, roomID, "occupancy cache read failed")
		return nil, -1, false
	}

	var version int64
	if s, ok := vals[1].(string); ok {
		version, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			c.warn(err, roomID, "occupancy version corrupt")
			return nil, -1, false
		}
	}

	data, ok := vals[0].(string)
	if !ok {
		return nil, version, false
	}
	var keys []string
	if err := json.Unmarshal([]byte(data), &keys); err != nil {
		c.warn(err, roomID, "occupancy cache entry corrupt")
		return nil, version, false
	}
	return availability.NewDaySet(keys...), version, true
}

// Set stores days for roomID if the room's version still equals version.
func (c *OccupancyCache) Set(ctx context.Context, roomID int64, days availability.DaySet, version int64) {
	if !c.enabled() || version < 0 {
		return
	}
	data, err := json.Marshal(days.Keys())
	if err != nil {
		return
	}

	vkey := versionKey(roomID)
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, occupancyKey(roomID), data, c.ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleVersion), errors.Is(err, redis.TxFailedErr):
		if c.logger != nil {
			c.logger.Debug().Int64("room_id", roomID).Msg("occupancy cache fill skipped: bookings changed")
		}
	default:
		c.warn(err, roomID, "occupancy cache write failed")
	}
}

// Invalidate drops the cached set for roomID and bumps its version.
func (c *OccupancyCache) Invalidate(ctx context.Context, roomID int64) {
	if !c.enabled() {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(roomID))
		pipe.Del(ctx, occupancyKey(roomID))
		return nil
	})
	if err != nil {
		c.warn(err, roomID, "occupancy cache invalidate failed")
	}
}

func (c *OccupancyCache) warn(err error, roomID int64, msg string) {
	if c.logger == nil {
		return
	}
	c.logger.Warn().Err(err).Int64("room_id", roomID).Msg(msg)
}
