package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"homestay/internal/model"
)

// Notifier tells the property managers about new reservations.
type Notifier interface {
	BookingCreated(ctx context.Context, b *model.Booking) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) BookingCreated(context.Context, *model.Booking) error { return nil }

type telegramSender interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends a message about each new booking to every manager chat.
type TelegramNotifier struct {
	tg       telegramSender
	managers []int64
	loc      *time.Location
	logger   *zerolog.Logger
}

func NewTelegramNotifier(token string, managers []int64, loc *time.Location, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newTelegramNotifier(api, managers, loc, logger), nil
}

func newTelegramNotifier(tg telegramSender, managers []int64, loc *time.Location, logger *zerolog.Logger) *TelegramNotifier {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{tg: tg, managers: managers, loc: loc, logger: logger}
}

// BookingCreated keeps going after a failed chat and returns the joined errors.
func (n *TelegramNotifier) BookingCreated(ctx context.Context, b *model.Booking) error {
	text := FormatBooking(b, n.loc)
	var errs []error
	for _, chatID := range n.managers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.tg.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("reference", b.Reference).Msg("failed to send booking notification")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// FormatBooking renders the manager message for b.
func FormatBooking(b *model.Booking, loc *time.Location) string {
	const layout = "02.01.2006 15:04"
	var sb strings.Builder
	sb.WriteString("New booking\n\n")
	fmt.Fprintf(&sb, "Room: %s\n", roomName(b))
	fmt.Fprintf(&sb, "Guest: %s\n", b.GuestName)
	if b.Phone != "" {
		fmt.Fprintf(&sb, "Phone: %s\n", b.Phone)
	}
	fmt.Fprintf(&sb, "Check-in: %s\n", b.Start.In(loc).Format(layout))
	fmt.Fprintf(&sb, "Check-out: %s\n", b.End.In(loc).Format(layout))
	fmt.Fprintf(&sb, "Nights: %d\n", b.Nights)
	if b.Comment != "" {
		fmt.Fprintf(&sb, "Comment: %s\n", b.Comment)
	}
	fmt.Fprintf(&sb, "Reference: %s", b.Reference)
	return sb.String()
}
