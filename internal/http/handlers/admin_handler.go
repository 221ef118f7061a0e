package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	mw "github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/middleware"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/http/response"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/service"
)

// SettingsManager reads and replaces the live site settings.
type SettingsManager interface {
	Current() domain.Settings
	Update(ctx context.Context, next domain.Settings, by string) (domain.Settings, error)
}

type AdminHandler struct {
	Auth     Authenticator
	Secret   string
	Bookings service.BookingService
	Settings SettingsManager
}

func NewAdminHandler(auth Authenticator, secret string, bookings service.BookingService, settings SettingsManager) *AdminHandler {
	return &AdminHandler{Auth: auth, Secret: secret, Bookings: bookings, Settings: settings}
}

func (h *AdminHandler) Routes(login ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(login...).Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdmin(h.Secret))
		r.Get("/bookings", h.list)
		r.Delete("/bookings/rows/{id}", h.deleteRow)
		r.Get("/bookings/{groupID}", h.get)
		r.Post("/bookings/{groupID}/confirm", h.confirm)
		r.Post("/bookings/{groupID}/decline", h.decline)
		r.Delete("/bookings/{groupID}", h.deleteGroup)
		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)
	})
	return r
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	limit, offset = repo.NormalizePage(limit, offset)

	filter := domain.BookingFilter{
		Date:   r.URL.Query().Get("date"),
		Limit:  limit,
		Offset: offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseBookingStatus(s)
		if !ok {
			response.BadRequest(w, "unknown status")
			return
		}
		filter.Status = &status
	}

	groups, err := h.Bookings.ListGroups(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": groups,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	g, err := h.Bookings.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *AdminHandler) confirm(w http.ResponseWriter, r *http.Request) {
	g, err := h.Bookings.Confirm(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *AdminHandler) decline(w http.ResponseWriter, r *http.Request) {
	g, err := h.Bookings.Decline(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *AdminHandler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.DeleteGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) deleteRow(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.DeleteRow(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Current())
}

func (h *AdminHandler) putSettings(w http.ResponseWriter, r *http.Request) {
	var in domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	by := ""
	if c := mw.Claims(r); c != nil {
		by = c.Sub
	}
	out, err := h.Settings.Update(r.Context(), in, by)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
