package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"homestay/internal/metrics"
	"homestay/internal/service"
)

// ConflictRequest is the request body for POST /api/rooms/{id}/conflicts.
type ConflictRequest struct {
	Date   string `json:"date"`             // Format: YYYY-MM-DD
	Nights *int   `json:"nights,omitempty"` // defaults to 1
}

// CalendarResponse is the response for GET /api/rooms/{id}/calendar.
type CalendarResponse struct {
	RoomID int64               `json:"room_id"`
	Nights int                 `json:"nights"`
	Days   []service.DayStatus `json:"days"`
	Period struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
}

// nightsOrDefault treats an omitted nights field as a one-night stay.
// An explicit value, zero included, is passed on for validation.
func nightsOrDefault(n *int) int {
	if n == nil {
		return 1
	}
	return *n
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleRooms lists active rooms.
// GET /api/rooms
func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooms")

	rooms, err := s.svc.ListRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// handleCalendar returns per-day occupancy and picker state for a room.
// GET /api/rooms/{id}/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD&nights=N
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")

	roomID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	nights := 1
	if v := q.Get("nights"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "nights must be an integer")
			return
		}
		nights = n
	}

	days, err := s.svc.Calendar(r.Context(), roomID, from, to, nights)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := CalendarResponse{RoomID: roomID, Nights: nights, Days: days}
	resp.Period.Start = from
	resp.Period.End = to
	writeJSON(w, http.StatusOK, resp)
}

// handleConflicts checks a candidate stay against the room's bookings.
// POST /api/rooms/{id}/conflicts
func (s *HTTPServer) handleConflicts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("conflicts")

	roomID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req ConflictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	res, err := s.svc.CheckConflict(r.Context(), roomID, req.Date, nightsOrDefault(req.Nights))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
