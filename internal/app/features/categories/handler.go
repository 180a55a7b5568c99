// internal/app/features/categories/handler.go
//
// Package categories serves the admin-curated camp categories and member
// skills. Both lists share one handler type bound to different collections.
package categories

import (
	"context"
	"errors"
	"net/http"
	"strings"

	lookupstore "github.com/dalemusser/camphub/internal/app/store/lookups"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxNameLen        = 100
	MaxDescriptionLen = 500
)

// Handler serves one lookup list. label names a single entry in messages
// ("Category") and key is the JSON field the list is returned under.
type Handler struct {
	Store *lookupstore.Store
	Log   *zap.Logger
	label string
	key   string
}

// NewCategories serves the categories collection.
func NewCategories(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Store: lookupstore.New(db, lookupstore.Categories), Log: logger, label: "Category", key: "categories"}
}

// NewSkills serves the skills collection.
func NewSkills(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Store: lookupstore.New(db, lookupstore.Skills), Log: logger, label: "Skill", key: "skills"}
}

// List returns active entries; admins also see retired ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := h.Store.List(ctx, !authz.IsAdmin(r))
	if err != nil {
		respond.ServerError(w, h.Log, "list "+h.key, err)
		return
	}
	respond.OK(w, map[string]any{h.key: items})
}

type lookupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (req *lookupRequest) validate(full bool) *inputval.Result {
	v := &inputval.Result{}
	if req.Name != nil {
		*req.Name = strings.TrimSpace(*req.Name)
		v.Required("name", "Name", *req.Name).MaxLen("name", "Name", *req.Name, MaxNameLen)
	} else if full {
		v.Add("name", "Name is required.")
	}
	if req.Description != nil {
		*req.Description = strings.TrimSpace(*req.Description)
		v.MaxLen("description", "Description", *req.Description, MaxDescriptionLen)
	}
	return v
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "create "+h.label)
		return
	}
	if v := req.validate(true); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	desc := ""
	if req.Description != nil {
		desc = *req.Description
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.Store.Create(ctx, *req.Name, desc)
	if errors.Is(err, lookupstore.ErrDuplicateName) {
		respond.Message(w, http.StatusConflict, h.label+" already exists")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "create "+h.label, err)
		return
	}
	respond.Created(w, map[string]any{"message": h.label + " created", "item": item})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid "+strings.ToLower(h.label)+" ID")
		return
	}
	var req lookupRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update "+h.label)
		return
	}
	if v := req.validate(false); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	item, err := h.Store.Update(ctx, id, req.Name, req.Description, req.IsActive)
	switch {
	case errors.Is(err, lookupstore.ErrDuplicateName):
		respond.Message(w, http.StatusConflict, h.label+" already exists")
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Message(w, http.StatusNotFound, h.label+" not found")
	case err != nil:
		respond.ServerError(w, h.Log, "update "+h.label, err)
	default:
		respond.OK(w, map[string]any{"message": h.label + " updated", "item": item})
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid "+strings.ToLower(h.label)+" ID")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.Store.Delete(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Message(w, http.StatusNotFound, h.label+" not found")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "delete "+h.label, err)
		return
	}
	respond.OK(w, map[string]any{"message": h.label + " deleted"})
}

// Routes mounts under /api/categories or /api/skills. Reads are public
// and writes need an admin.
func Routes(h *Handler, mw *auth.Middleware) chi.Router {
	r := chi.NewRouter()
	r.With(mw.Optional).Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, auth.RequireAdmin)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}
