package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/availability"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/response"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/service"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

// BookingHandler serves the public customer API.
type BookingHandler struct {
	Bookings service.BookingService
	Settings service.SettingsProvider
}

func NewBookingHandler(bookings service.BookingService, settings service.SettingsProvider) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Settings: settings}
}

// Routes mounts the public endpoints. create wraps only the booking POST,
// which is where idempotency and rate limiting belong.
func (h *BookingHandler) Routes(create ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.config)
	r.Get("/availability", h.availability)
	r.With(create...).Post("/bookings", h.create)
	r.Get("/bookings", h.listByPhone)
	return r
}

type bookingResult struct {
	Success bool                   `json:"success"`
	Booking *domain.BookingSummary `json:"booking,omitempty"`
	Message string                 `json:"message,omitempty"`
	Code    string                 `json:"code,omitempty"`
	// Date names the week of a recurring request that failed.
	Date string `json:"date,omitempty"`
}

func (h *BookingHandler) config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Current().Public())
}

func (h *BookingHandler) availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.BadRequest(w, "date is required")
		return
	}
	out, err := h.Bookings.Availability(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	var in availability.Request
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, bookingResult{Message: "invalid json", Code: response.CodeInvalidInput})
		return
	}

	summary, err := h.Bookings.CreateBooking(r.Context(), in)
	if err != nil {
		status, code, msg := classify(err)
		out := bookingResult{Message: msg, Code: code}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			out.Message = verr.Reason
			out.Date = verr.Date
		}
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "Create booking failed", "error", err)
		}
		writeJSON(w, status, out)
		return
	}
	writeJSON(w, http.StatusCreated, bookingResult{Success: true, Booking: summary})
}

func (h *BookingHandler) listByPhone(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Bookings.CustomerBookings(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": groups})
}
