// internal/app/features/camps/handler.go
package camps

import (
	"context"
	"errors"
	"net/http"
	"strings"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/paging"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the camp directory and the camp owner's profile editor.
type Handler struct {
	Camps   *campstore.Store
	Members *memberstore.Store
	Users   *userstore.Store
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Camps:   campstore.New(db),
		Members: memberstore.New(db),
		Users:   userstore.New(db),
		Audit:   audit,
		Log:     logger,
	}
}

var errCampNotFound = respond.NotFound("Camp not found")

// campCard is the directory shape: photos flattened to URLs.
type campCard struct {
	ID                  primitive.ObjectID  `json:"_id"`
	Name                string              `json:"name"`
	Slug                string              `json:"slug"`
	Description         string              `json:"description"`
	Theme               string              `json:"theme,omitempty"`
	CampSize            string              `json:"campSize,omitempty"`
	Location            models.Location     `json:"location"`
	Photos              []string            `json:"photos"`
	PrimaryPhotoIndex   int                 `json:"primaryPhotoIndex"`
	Offerings           models.Offerings    `json:"offerings"`
	Requirements        models.Requirements `json:"requirements"`
	IsRecruiting        bool                `json:"isRecruiting"`
	AcceptingNewMembers bool                `json:"acceptingNewMembers"`
	ShowApplyNow        bool                `json:"showApplyNow"`
}

func toCard(c models.Camp) campCard {
	return campCard{
		ID:                  c.ID,
		Name:                c.Name,
		Slug:                c.Slug,
		Description:         c.Description,
		Theme:               c.Theme,
		CampSize:            c.CampSize,
		Location:            c.Location,
		Photos:              c.PhotoURLs(),
		PrimaryPhotoIndex:   c.ClampedPrimaryPhotoIndex(),
		Offerings:           c.Offerings,
		Requirements:        c.Requirements,
		IsRecruiting:        c.IsRecruiting,
		AcceptingNewMembers: c.AcceptingNewMembers,
		ShowApplyNow:        c.ShowApplyNow,
	}
}

// List handles GET /api/camps.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := paging.ParsePage(r, paging.DefaultLimit)
	f := campstore.PublicFilter{
		Search:     query.Get(r, "search"),
		City:       query.Get(r, "location"),
		Theme:      query.Get(r, "theme"),
		Size:       strings.ToLower(query.Get(r, "size")),
		Recruiting: query.Get(r, "recruiting") == "true",
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, total, err := h.Camps.ListPublic(ctx, f, page.Skip(), int64(page.Limit))
	if err != nil {
		respond.ServerError(w, h.Log, "list camps", err)
		return
	}
	cards := make([]campCard, 0, len(rows))
	for _, c := range rows {
		cards = append(cards, toCard(c))
	}
	respond.OK(w, map[string]any{
		"camps":       cards,
		"totalPages":  page.TotalPages(total),
		"currentPage": page.Number,
		"total":       total,
	})
}

// visible reports whether the caller may see camp. Hidden and inactive
// camps are only shown to their owner and to admins.
func visible(r *http.Request, c *models.Camp) bool {
	if c.IsPublic && c.Status == models.CampActive {
		return true
	}
	return authz.CanManageCamp(r, c)
}

// detail writes the full camp, with the member count when the camp shows it.
func (h *Handler) detail(ctx context.Context, w http.ResponseWriter, r *http.Request, c *models.Camp, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !visible(r, c)) {
		respond.Err(w, h.Log, errCampNotFound, "camp detail")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "camp detail", err)
		return
	}

	out := map[string]any{"camp": c}
	if c.ShowMemberCount {
		n, err := h.Members.CountActive(ctx, c.ID)
		if err != nil {
			h.Log.Warn("count camp members failed", zap.Error(err), zap.String("camp_id", c.ID.Hex()))
		} else {
			out["memberCount"] = n
		}
	}
	respond.OK(w, out)
}

// GetBySlug handles GET /api/camps/public/{slug}.
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Camps.GetBySlug(ctx, strings.ToLower(chi.URLParam(r, "slug")))
	h.detail(ctx, w, r, c, err)
}

// GetByID handles GET /api/camps/{id}.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Camps.GetByID(ctx, id)
	h.detail(ctx, w, r, c, err)
}

// ListMembers handles GET /api/camps/{id}/members. The camp's own members may
// see each other; only the owner and admins see contact details.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.Camps.GetByID(ctx, id)
	if err != nil {
		respond.Err(w, h.Log, err, "camp members")
		return
	}
	manager := authz.CanManageCamp(r, c)
	if !manager {
		_, uid, _ := authz.UserCtx(r)
		ok, err := h.Members.IsActiveMember(ctx, c.ID, uid)
		if err != nil {
			respond.ServerError(w, h.Log, "camp members: membership check", err)
			return
		}
		if !ok {
			respond.Message(w, http.StatusForbidden, "Access denied")
			return
		}
	}

	members, err := h.Members.ListActive(ctx, c.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "camp members", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.User)
	}
	byID, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "camp members: users", err)
		return
	}

	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		u, ok := byID[m.User]
		if !ok {
			continue
		}
		user := map[string]any{
			"_id":          u.ID,
			"firstName":    u.FirstName,
			"lastName":     u.LastName,
			"playaName":    u.PlayaName,
			"profilePhoto": u.ProfilePhoto,
			"skills":       u.Skills,
		}
		if manager {
			user["email"] = u.Email
			user["phoneNumber"] = u.PhoneNumber
		}
		out = append(out, map[string]any{
			"_id":      m.ID,
			"role":     m.Role,
			"status":   m.Status,
			"joinedAt": m.JoinedAt,
			"user":     user,
		})
	}
	respond.OK(w, map[string]any{"members": out, "total": len(out)})
}

// Archive handles DELETE /api/camps/{id} (admin). Camps are archived, not
// removed; hard deletion lives in admin-delete.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Camps.SetStatus(ctx, id, models.CampArchived); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Err(w, h.Log, errCampNotFound, "archive camp")
			return
		}
		respond.ServerError(w, h.Log, "archive camp", err)
		return
	}
	_, actor, _ := authz.UserCtx(r)
	h.Audit.Camp(ctx, id, actor, models.ActivityCampStatus, map[string]any{"status": models.CampArchived})
	respond.Message(w, http.StatusOK, "Camp archived successfully")
}
