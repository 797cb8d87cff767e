package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"homestay/internal/availability"
	"homestay/internal/model"
)

const (
	BookingsSheet  = "Bookings"
	OccupancySheet = "Occupancy"
)

var (
	bookingColumns   = []string{"Reference", "Room", "Guest", "Phone", "Check-in", "Check-out", "Nights", "Status", "Comment"}
	occupancyColumns = []string{"Date", "Occupied rooms", "Rooms"}
)

// sheetWriter appends rows to one sheet at a time.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}
	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.writeRow(row); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	start, err := excelize.CoordinatesToCellName(1, w.currentRow-1)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
	if err != nil {
		return err
	}
	return w.file.SetCellStyle(w.currentSheet, start, end, style)
}

func (w *sheetWriter) writeRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

// Workbook is a rendered bookings export.
type Workbook struct {
	file *excelize.File
}

// Write streams the xlsx document to wr.
func (wb *Workbook) Write(wr io.Writer) error {
	return wb.file.Write(wr)
}

func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// BookingsWorkbook lists bookings on one sheet and, on a second, how many
// rooms are occupied on each of days. Occupancy follows the same rule as the
// date picker: a booking holds its check-in day up to but not including its
// check-out day, and canceled bookings hold nothing.
func BookingsWorkbook(policy availability.Policy, bookings []model.Booking, days []string) (*Workbook, error) {
	occupied, err := occupiedRooms(policy, bookings)
	if err != nil {
		return nil, err
	}

	w := newSheetWriter()
	loc := policy.Zone()

	if err := w.addSheet(BookingsSheet); err != nil {
		return nil, err
	}
	if err := w.writeHeader(bookingColumns); err != nil {
		return nil, err
	}
	for _, b := range bookings {
		row := []any{
			b.Reference, roomLabel(b), b.GuestName, b.Phone,
			availability.FormatInstant(b.Start, loc), availability.FormatInstant(b.End, loc),
			b.Nights, b.Status, b.Comment,
		}
		if err := w.writeRow(row); err != nil {
			return nil, err
		}
	}

	if err := w.addSheet(OccupancySheet); err != nil {
		return nil, err
	}
	if err := w.writeHeader(occupancyColumns); err != nil {
		return nil, err
	}
	for _, day := range days {
		var names []string
		for name, set := range occupied {
			if set.Contains(day) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if err := w.writeRow([]any{day, len(names), strings.Join(names, ", ")}); err != nil {
			return nil, err
		}
	}

	return &Workbook{file: w.file}, nil
}

// occupiedRooms builds one occupied-day set per room name.
func occupiedRooms(policy availability.Policy, bookings []model.Booking) (map[string]availability.DaySet, error) {
	byRoom := make(map[string][]model.Booking)
	for _, b := range bookings {
		byRoom[roomLabel(b)] = append(byRoom[roomLabel(b)], b)
	}

	out := make(map[string]availability.DaySet, len(byRoom))
	for name, list := range byRoom {
		days, err := policy.OccupiedDays(model.ActiveIntervals(list))
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", name, err)
		}
		out[name] = days
	}
	return out, nil
}

func roomLabel(b model.Booking) string {
	if b.RoomName != "" {
		return b.RoomName
	}
	return fmt.Sprintf("#%d", b.RoomID)
}
