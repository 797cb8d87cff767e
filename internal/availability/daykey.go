package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DayKeyLayout is the canonical yyyy-MM-dd form used as a day set element.
	DayKeyLayout = "2006-01-02"
	// InstantLayout is the local, offset-free timestamp form bookings arrive in.
	InstantLayout = "2006-01-02T15:04:05"
)

var instantLayouts = []string{
	InstantLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: clock %q, expected HH:MM", ErrInvalidArgument, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%w: clock hour %q", ErrInvalidArgument, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("%w: clock minute %q", ErrInvalidArgument, s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant at this clock time on day's calendar date in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	day = day.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// ParseDay parses a yyyy-MM-dd calendar date as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseInstant parses a local timestamp without offset, interpreting it in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatInstant renders t in loc using InstantLayout.
func FormatInstant(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(InstantLayout)
}

// DayKey formats the calendar date of t in its own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// StartOfDay returns midnight of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping its wall-clock time.
// Unlike t.Add(n*24h) this stays on the same clock time across DST changes.
func AddDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
