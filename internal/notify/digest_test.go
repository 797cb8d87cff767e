package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homestay/internal/availability"
	"homestay/internal/model"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) BookingsBetween(ctx context.Context, from, to string) ([]model.Booking, []string, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), []string{from}, args.Error(1)
}

func dec(day, hour int) time.Time {
	return time.Date(2025, 12, day, hour, 0, 0, 0, time.UTC)
}

func digestBookings() []model.Booking {
	return []model.Booking{
		{RoomName: "Attic", GuestName: "Minh", Start: dec(20, 14), End: dec(22, 12), Nights: 2, Status: model.StatusConfirmed},
		{RoomName: "Garden", GuestName: "Lan", Phone: "+84", Start: dec(22, 14), End: dec(24, 12), Nights: 2, Status: model.StatusPending},
		{RoomName: "Loft", GuestName: "Huy", Start: dec(22, 14), End: dec(23, 12), Nights: 1, Status: model.StatusCanceled},
		{RoomName: "Porch", GuestName: "An", Start: dec(21, 14), End: dec(25, 12), Nights: 4, Status: model.StatusConfirmed},
	}
}

func TestFormatDigest(t *testing.T) {
	text := FormatDigest("2025-12-22", digestBookings(), time.UTC)
	assert.Equal(t, "Daily summary for 2025-12-22\n\n"+
		"Arrivals (1):\n"+
		"- 14:00 Garden: Lan, 2 night(s), +84\n\n"+
		"Departures (1):\n"+
		"- 12:00 Attic: Minh", text)

	text = FormatDigest("2025-12-30", digestBookings(), time.UTC)
	assert.Equal(t, "Daily summary for 2025-12-30\n\nArrivals (0):\nnone\n\nDepartures (0):\nnone", text)
}

func newTestDigest(source DigestSource, sender telegramSender, now time.Time) *DailyDigest {
	n := newTelegramNotifier(sender, []int64{100}, time.UTC, nil)
	d := NewDailyDigest(source, n, availability.Clock{Hour: 8})
	d.now = func() time.Time { return now }
	return d
}

func TestDailyDigest_RunsOncePerDay(t *testing.T) {
	ctx := context.Background()
	source := new(mockSource)
	sender := new(mockSender)
	source.On("BookingsBetween", ctx, "2025-12-22", "2025-12-22").Return(digestBookings(), nil).Once()
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 100
	})).Return(nil).Once()

	now := dec(22, 7)
	d := newTestDigest(source, sender, now)

	assert.False(t, d.checkAndRun(ctx), "before 08:00")

	now = dec(22, 9)
	d.now = func() time.Time { return now }
	assert.True(t, d.checkAndRun(ctx))
	assert.False(t, d.checkAndRun(ctx), "already sent today")

	source.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDailyDigest_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("source failure", func(t *testing.T) {
		source := new(mockSource)
		sender := new(mockSender)
		source.On("BookingsBetween", ctx, "2025-12-22", "2025-12-22").Return(nil, errors.New("db closed"))
		d := newTestDigest(source, sender, dec(22, 9))

		err := d.RunNow(ctx, "2025-12-22")
		require.Error(t, err)
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("send failure", func(t *testing.T) {
		source := new(mockSource)
		sender := new(mockSender)
		source.On("BookingsBetween", ctx, "2025-12-22", "2025-12-22").Return([]model.Booking{}, nil)
		sender.On("Send", mock.Anything).Return(errors.New("blocked"))
		d := newTestDigest(source, sender, dec(22, 9))

		err := d.RunNow(ctx, "2025-12-22")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat 100")
	})
}
