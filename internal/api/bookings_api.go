package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"homestay/internal/metrics"
	"homestay/internal/model"
	"homestay/internal/report"
	"homestay/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	RoomID    int64  `json:"room_id"`
	GuestName string `json:"guest_name"`
	Phone     string `json:"phone,omitempty"`
	Date      string `json:"date"`             // check-in day, YYYY-MM-DD
	Nights    *int   `json:"nights,omitempty"` // defaults to 1
	Comment   string `json:"comment,omitempty"`
}

// handleCreateBooking reserves a room.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	booking, err := s.svc.Reserve(r.Context(), service.ReserveRequest{
		RoomID:    req.RoomID,
		GuestName: req.GuestName,
		Phone:     req.Phone,
		Date:      req.Date,
		Nights:    nightsOrDefault(req.Nights),
		Comment:   req.Comment,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// handleGetBooking looks a booking up by its public reference.
// GET /api/bookings/{ref}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")

	booking, err := s.svc.GetBookingByReference(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// POST /api/bookings/{id}/cancel
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")
	s.changeStatus(w, r, s.svc.Cancel)
}

// POST /api/bookings/{id}/confirm
func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm_booking")
	s.changeStatus(w, r, s.svc.Confirm)
}

// POST /api/bookings/{id}/complete
func (s *HTTPServer) handleCompleteBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("complete_booking")
	s.changeStatus(w, r, s.svc.Complete)
}

func (s *HTTPServer) changeStatus(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*model.Booking, error)) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	booking, err := op(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// handleBookingsReport exports bookings and daily occupancy as xlsx.
// GET /api/reports/bookings.xlsx?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_report")

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	bookings, days, err := s.svc.BookingsBetween(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	wb, err := report.BookingsWorkbook(s.svc.Policy(), bookings, days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer wb.Close()

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings_%s_%s.xlsx"`, from, to))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
