package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"homestay/internal/availability"
	"homestay/internal/model"
	"homestay/internal/service"
)

// BookingService is the part of service.BookingService the API serves.
type BookingService interface {
	Policy() availability.Policy
	ListRooms(ctx context.Context) ([]model.Room, error)
	CheckConflict(ctx context.Context, roomID int64, date string, nights int) (service.ConflictResult, error)
	Calendar(ctx context.Context, roomID int64, from, to string, nights int) ([]service.DayStatus, error)
	Reserve(ctx context.Context, req service.ReserveRequest) (*model.Booking, error)
	Cancel(ctx context.Context, id int64) (*model.Booking, error)
	Confirm(ctx context.Context, id int64) (*model.Booking, error)
	Complete(ctx context.Context, id int64) (*model.Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*model.Booking, error)
	BookingsBetween(ctx context.Context, from, to string) ([]model.Booking, []string, error)
}

type Options struct {
	Port           int
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

// HTTPServer exposes the booking service as a JSON API.
type HTTPServer struct {
	svc     BookingService
	apiKey  string
	limiter *clientLimiter
	log     *zerolog.Logger
	server  *http.Server
}

func NewHTTPServer(opts Options, svc BookingService, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		svc:    svc,
		apiKey: opts.APIKey,
		log:    logger,
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/rooms", s.handleRooms)
	mux.HandleFunc("GET /api/rooms/{id}/calendar", s.handleCalendar)
	mux.HandleFunc("POST /api/rooms/{id}/conflicts", s.handleConflicts)
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings/{ref}", s.handleGetBooking)
	mux.HandleFunc("POST /api/bookings/{id}/cancel", s.handleCancelBooking)
	mux.HandleFunc("POST /api/bookings/{id}/confirm", s.handleConfirmBooking)
	mux.HandleFunc("POST /api/bookings/{id}/complete", s.handleCompleteBooking)
	mux.HandleFunc("GET /api/reports/bookings.xlsx", s.handleBookingsReport)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// withMiddleware checks the API key and the per-client rate limit on every
// route except /healthz.
func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-Api-Key")
		if s.apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}

		if s.limiter != nil && !s.limiter.allow(clientKey(r, s.apiKey)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service errors to HTTP statuses and hides
// internal failures behind a generic message.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrDatesUnavailable):
		writeError(w, http.StatusConflict, "dates unavailable")
	case errors.Is(err, service.ErrAlreadyCanceled), errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidArgument),
		errors.Is(err, service.ErrTooManyNights),
		errors.Is(err, service.ErrRangeTooLong),
		errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
