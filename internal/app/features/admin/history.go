// internal/app/features/admin/history.go
package admin

import (
	"context"
	"net/http"
	"strconv"

	activitystore "github.com/dalemusser/camphub/internal/app/store/activity"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func limitParam(r *http.Request) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || n <= 0 {
		return activitystore.DefaultLimit
	}
	return n
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, label string) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	logs, err := h.Activity.History(ctx, id, limitParam(r))
	if err != nil {
		respond.ServerError(w, h.Log, label+" history", err)
		return
	}
	respond.OK(w, map[string]any{"history": logs, "total": len(logs)})
}

// UserHistory handles GET /api/admin/users/{id}/history.
func (h *Handler) UserHistory(w http.ResponseWriter, r *http.Request) { h.history(w, r, "user") }

// CampHistory handles GET /api/admin/camps/{id}/history.
func (h *Handler) CampHistory(w http.ResponseWriter, r *http.Request) { h.history(w, r, "camp") }

// AuditLogs handles GET /api/admin/audit-logs?type=&entityType=&limit=.
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	logs, err := h.Activity.List(ctx, activitystore.Filter{
		ActivityType: r.URL.Query().Get("type"),
		EntityType:   r.URL.Query().Get("entityType"),
		Limit:        limitParam(r),
	})
	if err != nil {
		respond.ServerError(w, h.Log, "audit logs", err)
		return
	}
	respond.OK(w, map[string]any{"logs": logs, "total": len(logs)})
}
