// internal/app/features/realtime/handler.go
//
// Package realtime upgrades authenticated clients to WebSocket connections
// on the notify hub. Browsers cannot set headers on the upgrade request, so
// the token travels in the query string.
package realtime

import (
	"context"
	"errors"
	"net/http"
	"strings"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Hub      *notify.Hub
	Auth     *auth.Middleware
	Camps    *campstore.Store
	Members  *memberstore.Store
	Log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the upgrade handler. origins limits which browser
// origins may connect; an empty list accepts any.
func NewHandler(db *mongo.Database, hub *notify.Hub, mw *auth.Middleware, origins []string, logger *zap.Logger) *Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return &Handler{
		Hub:     hub,
		Auth:    mw,
		Camps:   campstore.New(db),
		Members: memberstore.New(db),
		Log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				_, ok := allowed[strings.ToLower(origin)]
				return ok
			},
		},
	}
}

// Serve handles GET /api/ws?token=<jwt>.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = auth.BearerToken(r)
	}
	u, herr := h.Auth.Resolve(r.Context(), raw)
	if herr != nil {
		respond.Message(w, herr.Status, herr.Message)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Log.Debug("ws upgrade failed", zap.String("user_id", u.ID), zap.Error(err))
		return
	}
	h.Log.Debug("ws connected", zap.String("user_id", u.ID))
	h.Hub.Attach(conn, u.ID, h.joinCheck(u))
}

// joinCheck lets admins join any camp room, camp owners join their own,
// and active members join the camps they belong to.
func (h *Handler) joinCheck(u *auth.User) notify.JoinFunc {
	return func(ctx context.Context, _ string, campID string) bool {
		oid, err := primitive.ObjectIDFromHex(campID)
		if err != nil {
			return false
		}
		if u.IsAdmin() {
			return true
		}
		if cid, ok := u.CampObjectID(); ok && cid == oid {
			return true
		}
		uid := u.ObjectID()
		camp, err := h.Camps.GetByID(ctx, oid)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false
		}
		if err != nil {
			h.Log.Warn("ws join: load camp", zap.String("camp_id", campID), zap.Error(err))
			return false
		}
		if camp.Owner != nil && *camp.Owner == uid {
			return true
		}
		ok, err := h.Members.IsActiveMember(ctx, oid, uid)
		if err != nil {
			h.Log.Warn("ws join: membership", zap.String("camp_id", campID), zap.Error(err))
			return false
		}
		return ok
	}
}

// Routes mounts under /api/ws.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
