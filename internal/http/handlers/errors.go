package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/response"
	"github.com/Mohammed-Azab/HagzYomi-sub000/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// classify maps a service error to an HTTP status, an error code and a
// message that is safe to show to callers.
func classify(err error) (int, string, string) {
	var verr *domain.ValidationError
	var cfgErr *domain.ConfigurationError
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &verr):
		if verr.Code == domain.CodeSlotBooked {
			return http.StatusConflict, verr.Code, verr.Error()
		}
		return http.StatusBadRequest, verr.Code, verr.Error()
	case errors.Is(err, domain.ErrSlotTaken):
		return http.StatusConflict, response.CodeSlotTaken, "slot was just booked by someone else"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, response.CodeInvalidTransition, err.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, response.CodeConflict, conflict.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, response.CodeNotFound, err.Error()
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable, response.CodeUnavailable, "booking is not available right now"
	default:
		return http.StatusInternalServerError, response.CodeInternalError, "internal error"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	response.WriteError(w, status, msg, code)
}

func parsePagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be zero or more")
		}
	}
	return limit, offset, nil
}
