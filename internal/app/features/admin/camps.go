// internal/app/features/admin/camps.go
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/camphub/internal/app/maintenance"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/paging"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var campStatuses = []string{models.CampActive, models.CampInactive, models.CampSuspended, models.CampArchived}

// ListCamps handles GET /api/admin/camps?search=&status=&page=&limit=.
func (h *Handler) ListCamps(w http.ResponseWriter, r *http.Request) {
	f := campstore.AdminFilter{Search: r.URL.Query().Get("search"), Status: r.URL.Query().Get("status")}
	if f.Status != "" {
		var v inputval.Result
		if v.OneOf("status", "Status", f.Status, campStatuses...); v.HasErrors() {
			respond.Message(w, http.StatusBadRequest, v.First())
			return
		}
	}
	page := paging.ParsePage(r, paging.DefaultLimit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	q := f.Query()
	total, err := h.Camps.Count(ctx, q)
	if err != nil {
		respond.ServerError(w, h.Log, "count camps", err)
		return
	}
	find := page.ApplyToFind(options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	camps, err := h.Camps.Find(ctx, q, find)
	if err != nil {
		respond.ServerError(w, h.Log, "list camps", err)
		return
	}
	respond.OK(w, map[string]any{
		"camps": camps,
		"pagination": map[string]any{
			"page": page.Number, "limit": page.Limit,
			"total": total, "pages": page.TotalPages(total),
		},
	})
}

// SetCampStatus handles PUT /api/admin/camps/{id}/status {status}.
func (h *Handler) SetCampStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status" validate:"required,oneof=active inactive suspended archived" label:"Status"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if v := inputval.Validate(in); v.HasErrors() {
		respond.Message(w, http.StatusBadRequest, v.First())
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}
	_, adminID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Camps.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errCampNotFound, "")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "load camp", err)
		return
	}
	updated, err := h.Camps.UpdateAndGet(ctx, id, bson.M{"status": in.Status})
	if err != nil {
		respond.ServerError(w, h.Log, "set camp status", err)
		return
	}
	h.Audit.Camp(ctx, id, adminID, models.ActivityCampStatus, map[string]any{"from": c.Status, "to": in.Status})
	respond.OK(w, map[string]any{"message": "Camp status updated", "camp": updated})
}

// RestoreCampAdmin handles POST /api/admin/restore-camp-admin/{campId}. It
// links the camp to the account matching its contact email, creating one
// when needed.
func (h *Handler) RestoreCampAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}
	_, adminID, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	fix, err := h.Maint.RestoreCampOwner(ctx, id, &adminID)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Err(w, h.Log, errCampNotFound, "")
		return
	case errors.Is(err, maintenance.ErrNoContactEmail):
		respond.Message(w, http.StatusBadRequest, "Camp has no contact email to restore an admin from")
		return
	case err != nil:
		respond.ServerError(w, h.Log, "restore camp admin", err)
		return
	}

	msg := "Camp admin restored"
	if fix.Action == maintenance.OwnerUnchanged {
		msg = "Camp admin already in place"
	}
	respond.OK(w, map[string]any{"message": msg, "result": fix})
}
