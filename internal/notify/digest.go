package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"homestay/internal/availability"
	"homestay/internal/model"
)

// DigestSource lists the bookings touching an inclusive day range.
type DigestSource interface {
	BookingsBetween(ctx context.Context, from, to string) ([]model.Booking, []string, error)
}

// DailyDigest sends managers the day's arrivals and departures once a day.
type DailyDigest struct {
	source        DigestSource
	tg            telegramSender
	managers      []int64
	at            availability.Clock
	loc           *time.Location
	checkInterval time.Duration
	logger        *zerolog.Logger
	now           func() time.Time

	mu          sync.Mutex
	lastRunDate string
}

// NewDailyDigest sends through the same bot and chats as n.
func NewDailyDigest(source DigestSource, n *TelegramNotifier, at availability.Clock) *DailyDigest {
	return &DailyDigest{
		source:        source,
		tg:            n.tg,
		managers:      n.managers,
		at:            at,
		loc:           n.loc,
		checkInterval: time.Minute,
		logger:        n.logger,
		now:           time.Now,
	}
}

// Start checks the clock every minute until ctx is done.
func (d *DailyDigest) Start(ctx context.Context) {
	d.logger.Info().Str("at", d.at.String()).Str("timezone", d.loc.String()).Msg("daily digest scheduler started")

	ticker := time.NewTicker(d.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("daily digest scheduler stopped")
			return
		case <-ticker.C:
			d.checkAndRun(ctx)
		}
	}
}

// checkAndRun sends today's digest once the configured time has passed.
func (d *DailyDigest) checkAndRun(ctx context.Context) bool {
	now := d.now().In(d.loc)
	today := availability.DayKey(now)

	d.mu.Lock()
	if d.lastRunDate == today || now.Before(d.at.On(availability.StartOfDay(now), d.loc)) {
		d.mu.Unlock()
		return false
	}
	d.lastRunDate = today
	d.mu.Unlock()

	if err := d.RunNow(ctx, today); err != nil {
		d.logger.Error().Err(err).Str("date", today).Msg("daily digest failed")
	}
	return true
}

// RunNow sends the digest for day regardless of the schedule.
func (d *DailyDigest) RunNow(ctx context.Context, day string) error {
	bookings, _, err := d.source.BookingsBetween(ctx, day, day)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}
	text := FormatDigest(day, bookings, d.loc)

	var errs []error
	for _, chatID := range d.managers {
		if _, err := d.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	d.logger.Info().Str("date", day).Int("bookings", len(bookings)).Int("failed", len(errs)).Msg("daily digest sent")
	return errors.Join(errs...)
}

// FormatDigest lists who checks in and who checks out on day.
// Canceled bookings are left out.
func FormatDigest(day string, bookings []model.Booking, loc *time.Location) string {
	var arrivals, departures []model.Booking
	for _, b := range bookings {
		if !b.IsActive() {
			continue
		}
		if availability.DayKey(b.Start.In(loc)) == day {
			arrivals = append(arrivals, b)
		}
		if availability.DayKey(b.End.In(loc)) == day {
			departures = append(departures, b)
		}
	}
	sort.Slice(arrivals, func(i, j int) bool { return arrivals[i].Start.Before(arrivals[j].Start) })
	sort.Slice(departures, func(i, j int) bool { return departures[i].End.Before(departures[j].End) })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Daily summary for %s\n", day)

	fmt.Fprintf(&sb, "\nArrivals (%d):\n", len(arrivals))
	if len(arrivals) == 0 {
		sb.WriteString("none\n")
	}
	for _, b := range arrivals {
		fmt.Fprintf(&sb, "- %s %s: %s, %d night(s)", b.Start.In(loc).Format("15:04"), roomName(&b), b.GuestName, b.Nights)
		if b.Phone != "" {
			fmt.Fprintf(&sb, ", %s", b.Phone)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nDepartures (%d):\n", len(departures))
	if len(departures) == 0 {
		sb.WriteString("none\n")
	}
	for _, b := range departures {
		fmt.Fprintf(&sb, "- %s %s: %s\n", b.End.In(loc).Format("15:04"), roomName(&b), b.GuestName)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func roomName(b *model.Booking) string {
	if b.RoomName != "" {
		return b.RoomName
	}
	return fmt.Sprintf("#%d", b.RoomID)
}
