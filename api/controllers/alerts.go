package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plateiq/restaurant-backend/api/responses"
	"github.com/plateiq/restaurant-backend/api/validators"
	"github.com/plateiq/restaurant-backend/internal/alerts"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
	"github.com/plateiq/restaurant-backend/pkg/logger"
	"github.com/plateiq/restaurant-backend/pkg/pagination"
)

// ListAlerts returns a restaurant's stock alerts, newest first.
func ListAlerts(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, err := parseUUIDField(r.URL.Query().Get("restaurant_id"), "restaurant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}
		filter := alerts.ListFilter{
			UnreadOnly: r.URL.Query().Get("unread") == "true",
			Limit:      limit,
			Cursor:     cursor,
		}

		page, err := svc.List(r.Context(), restaurantID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// MarkAlertRead marks a single alert as read.
func MarkAlertRead(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

// MarkAllAlertsRead marks every unread alert for a restaurant as read and
// reports how many rows changed.
func MarkAllAlertsRead(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, err := parseUUIDField(r.URL.Query().Get("restaurant_id"), "restaurant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.MarkAllRead(r.Context(), restaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"marked_read": count})
	}
}
