// internal/app/features/rosters/handler.go
package rosters

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	"github.com/dalemusser/camphub/internal/app/store/passwordreset"
	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/app/system/txn"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxNameLen bounds roster names.
const MaxNameLen = 100

// Handler serves roster management for camp leads.
type Handler struct {
	Client       *mongo.Client
	Rosters      *rosterstore.Store
	Members      *memberstore.Store
	Camps        *campstore.Store
	Users        *userstore.Store
	Applications *applicationstore.Store
	Resets       *passwordreset.Store
	Mail         mailer.Sender
	Notify       notify.Publisher
	Audit        *auditlog.Logger
	BaseURL      string
	Log          *zap.Logger
}

func NewHandler(db *mongo.Database, mail mailer.Sender, pub notify.Publisher, audit *auditlog.Logger, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Client:       db.Client(),
		Rosters:      rosterstore.New(db),
		Members:      memberstore.New(db),
		Camps:        campstore.New(db),
		Users:        userstore.New(db),
		Applications: applicationstore.New(db),
		Resets:       passwordreset.New(db, passwordreset.DefaultExpiry),
		Mail:         mail,
		Notify:       notify.Or(pub),
		Audit:        audit,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Log:          logger,
	}
}

var (
	errCampNotFound   = respond.NotFound("Camp not found")
	errRosterNotFound = respond.NotFound("Roster not found")
	errNoAccess       = respond.Forbidden("Camp account required")
)

// callerCamp resolves the camp the caller manages. Admins without a linked
// camp name one with ?campId=.
func (h *Handler) callerCamp(ctx context.Context, r *http.Request) (*models.Camp, error) {
	if authz.IsAdmin(r) {
		if q := r.URL.Query().Get("campId"); q != "" {
			id, err := primitive.ObjectIDFromHex(q)
			if err != nil {
				return nil, respond.BadRequest("Invalid camp ID")
			}
			return h.camp(ctx, id)
		}
	}
	cu, _ := auth.CurrentUser(r)
	if cid, ok := cu.CampObjectID(); ok {
		c, err := h.Camps.GetByID(ctx, cid)
		if err == nil || !errors.Is(err, mongo.ErrNoDocuments) {
			return c, err
		}
	}
	c, err := h.Camps.FindByOwner(ctx, cu.ObjectID())
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	return c, err
}

func (h *Handler) camp(ctx context.Context, id primitive.ObjectID) (*models.Camp, error) {
	c, err := h.Camps.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	return c, err
}

// managedRoster loads the {id} roster and checks that
// the caller manages its camp.
func (h *Handler) managedRoster(ctx context.Context, r *http.Request) (*models.Roster, *models.Camp, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, nil, respond.BadRequest("Invalid roster ID")
	}
	roster, err := h.Rosters.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, errRosterNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	c, err := h.camp(ctx, roster.Camp)
	if err != nil {
		return nil, nil, err
	}
	if !authz.CanManageCamp(r, c) {
		return nil, nil, errNoAccess
	}
	return roster, c, nil
}

// userDetails is the profile slice shown on a roster line.
type userDetails struct {
	ID                 primitive.ObjectID `json:"_id"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	Email              string             `json:"email"`
	ProfilePhoto       string             `json:"profilePhoto,omitempty"`
	Bio                string             `json:"bio,omitempty"`
	PlayaName          string             `json:"playaName,omitempty"`
	City               string             `json:"city,omitempty"`
	YearsBurned        int                `json:"yearsBurned"`
	Skills             []string           `json:"skills"`
	SocialMedia        models.SocialMedia `json:"socialMedia"`
	HasTicket          bool               `json:"hasTicket"`
	HasVehiclePass     bool               `json:"hasVehiclePass"`
	ArrivalDate        *time.Time         `json:"arrivalDate,omitempty"`
	DepartureDate      *time.Time         `json:"departureDate,omitempty"`
	InterestedInEAP    bool               `json:"interestedInEAP"`
	InterestedInStrike bool               `json:"interestedInStrike"`
}

func detailsOf(u models.User) *userDetails {
	return &userDetails{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
		ProfilePhoto: u.ProfilePhoto, Bio: u.Bio, PlayaName: u.PlayaName, City: u.City,
		YearsBurned: u.YearsBurned, Skills: u.Skills, SocialMedia: u.SocialMedia,
		HasTicket: u.HasTicket, HasVehiclePass: u.HasVehiclePass,
		ArrivalDate: u.ArrivalDate, DepartureDate: u.DepartureDate,
		InterestedInEAP: u.InterestedInEAP, InterestedInStrike: u.InterestedInStrike,
	}
}

type entryView struct {
	models.RosterEntry
	UserDetails *userDetails `json:"userDetails,omitempty"`
}

type rosterView struct {
	models.Roster
	Members []entryView `json:"members"`
}

// views joins each roster line with its user. Lines whose user no longer
// exists are dropped.
func (h *Handler) views(ctx context.Context, rosters ...models.Roster) ([]rosterView, error) {
	var ids []primitive.ObjectID
	for _, ro := range rosters {
		for _, e := range ro.Members {
			ids = append(ids, e.User)
		}
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]rosterView, 0, len(rosters))
	for _, ro := range rosters {
		v := rosterView{Roster: ro, Members: make([]entryView, 0, len(ro.Members))}
		for _, e := range ro.Members {
			u, ok := users[e.User]
			if !ok {
				continue
			}
			v.Members = append(v.Members, entryView{RosterEntry: e, UserDetails: detailsOf(u)})
		}
		out = append(out, v)
	}
	return out, nil
}

// List handles GET /api/rosters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "list rosters")
		return
	}
	rosters, err := h.Rosters.ListByCamp(ctx, c.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "list rosters", err)
		return
	}
	out, err := h.views(ctx, rosters...)
	if err != nil {
		respond.ServerError(w, h.Log, "list rosters: users", err)
		return
	}
	respond.OK(w, map[string]any{"rosters": out})
}

// Active handles GET /api/rosters/active. A camp with no active roster
// gets {"roster": null}.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "active roster")
		return
	}
	h.writeActive(ctx, w, c.ID)
}

// ForCamp handles GET /api/rosters/camp/{campId} for the camp's managers
// and its active members.
func (h *Handler) ForCamp(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.camp(ctx, id)
	if err != nil {
		respond.Err(w, h.Log, err, "camp roster")
		return
	}
	if !authz.CanManageCamp(r, c) {
		_, uid, _ := authz.UserCtx(r)
		ok, err := h.Members.IsActiveMember(ctx, c.ID, uid)
		if err != nil {
			respond.ServerError(w, h.Log, "camp roster: membership", err)
			return
		}
		if !ok {
			respond.Message(w, http.StatusForbidden, "Access denied - must be camp owner or member")
			return
		}
	}
	h.writeActive(ctx, w, c.ID)
}

func (h *Handler) writeActive(ctx context.Context, w http.ResponseWriter, camp primitive.ObjectID) {
	roster, err := h.Rosters.Active(ctx, camp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.OK(w, map[string]any{"roster": nil})
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "active roster", err)
		return
	}
	out, err := h.views(ctx, *roster)
	if err != nil {
		respond.ServerError(w, h.Log, "active roster: users", err)
		return
	}
	respond.OK(w, map[string]any{"roster": out[0]})
}

// Get handles GET /api/rosters/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	roster, _, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "get roster")
		return
	}
	out, err := h.views(ctx, *roster)
	if err != nil {
		respond.ServerError(w, h.Log, "get roster: users", err)
		return
	}
	respond.OK(w, map[string]any{"roster": out[0]})
}

// rosterRequest's name limit is MaxNameLen.
type rosterRequest struct {
	Name        string `json:"name" validate:"required,max=100" label:"Roster name"`
	Description string `json:"description" validate:"max=500" label:"Description"`
}

func (req *rosterRequest) validate() inputval.Result {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	return inputval.Validate(req)
}

// Create handles POST /api/rosters. The current active roster is archived
// and the new one starts with every active member.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "create roster")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "create roster")
		return
	}

	var created models.Roster
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context, tx *txn.Tx) error {
		if err := h.Rosters.ArchiveActive(ctx, c.ID, actor); err != nil {
			return err
		}
		members, err := h.Members.ListActive(ctx, c.ID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		entries := make([]models.RosterEntry, 0, len(members))
		for _, m := range members {
			entries = append(entries, models.RosterEntry{
				Member: m.ID, User: m.User, AddedAt: now, AddedBy: &actor, DuesStatus: models.DuesUnpaid,
			})
		}
		created, err = h.Rosters.Create(ctx, models.Roster{
			Camp:        c.ID,
			Name:        req.Name,
			Description: req.Description,
			IsActive:    true,
			Members:     entries,
			CreatedBy:   &actor,
		})
		if err != nil {
			return err
		}
		id := created.ID
		tx.OnRollback(func(ctx context.Context) error { return h.Rosters.Delete(ctx, id) })
		return nil
	})
	if errors.Is(err, rosterstore.ErrActiveExists) {
		respond.Message(w, http.StatusBadRequest, "Only one active roster is allowed per camp")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "create roster", err)
		return
	}

	h.Audit.Camp(ctx, c.ID, actor, models.ActivityRosterCreated, map[string]any{
		"roster_id": created.ID.Hex(), "name": created.Name, "members": len(created.Members),
	})
	h.rosterUpdated(c.ID, created.ID)
	respond.Created(w, map[string]any{"roster": created})
}

// Rename handles PUT /api/rosters/{id}.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "rename roster")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	roster, _, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "rename roster")
		return
	}
	updated, err := h.Rosters.Rename(ctx, roster.ID, req.Name, req.Description)
	if err != nil {
		respond.ServerError(w, h.Log, "rename roster", err)
		return
	}
	respond.OK(w, map[string]any{"roster": updated})
}

// Archive handles PUT /api/rosters/{id}/archive.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	roster, c, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "archive roster")
		return
	}
	updated, err := h.Rosters.Archive(ctx, roster.ID, actor)
	if errors.Is(err, rosterstore.ErrAlreadyArchived) {
		respond.Message(w, http.StatusBadRequest, "Roster is already archived")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "archive roster", err)
		return
	}
	h.Audit.Camp(ctx, c.ID, actor, models.ActivityRosterArchived, map[string]any{"roster_id": roster.ID.Hex()})
	h.rosterUpdated(c.ID, roster.ID)
	respond.OK(w, map[string]any{"roster": updated})
}

func (h *Handler) rosterUpdated(camp, roster primitive.ObjectID) {
	h.Notify.Publish(notify.CampRoom(camp.Hex()), notify.EventRosterUpdated, map[string]any{"rosterId": roster})
}
