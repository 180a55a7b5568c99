// internal/app/features/applications/handler.go
package applications

import (
	"context"
	"errors"
	"net/http"
	"strings"

	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	callslotstore "github.com/dalemusser/camphub/internal/app/store/callslots"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	invitestore "github.com/dalemusser/camphub/internal/app/store/invites"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/metrics"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxMessageLen limits one message in an application thread.
const MaxMessageLen = 2000

// Handler owns the application lifecycle: apply, review, message.
type Handler struct {
	Client       *mongo.Client
	Applications *applicationstore.Store
	Camps        *campstore.Store
	Members      *memberstore.Store
	Rosters      *rosterstore.Store
	Users        *userstore.Store
	Invites      *invitestore.Store
	CallSlots    *callslotstore.Store
	Mail         mailer.Sender
	Notify       notify.Publisher
	Audit        *auditlog.Logger
	Metrics      *metrics.Metrics
	BaseURL      string
	Log          *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	mail mailer.Sender,
	pub notify.Publisher,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Client:       db.Client(),
		Applications: applicationstore.New(db),
		Camps:        campstore.New(db),
		Members:      memberstore.New(db),
		Rosters:      rosterstore.New(db),
		Users:        userstore.New(db),
		Invites:      invitestore.New(db),
		CallSlots:    callslotstore.New(db),
		Mail:         mail,
		Notify:       notify.Or(pub),
		Audit:        audit,
		Metrics:      m,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Log:          logger,
	}
}

var (
	errCampNotFound = respond.NotFound("Camp not found")
	errAppNotFound  = respond.NotFound("Application not found")
	errNoAccess     = respond.Forbidden("Access denied")
)

// applyRequest carries the applicant's answers. ApplicationData brings
// its own rules.
type applyRequest struct {
	CampID          string                 `json:"campId" validate:"required,objectid" label:"Camp"`
	ApplicationData models.ApplicationData `json:"applicationData"`
	CallSlotID      string                 `json:"callSlotId" validate:"omitempty,objectid" label:"Call slot"`
	InviteToken     string                 `json:"inviteToken" validate:"max=200" label:"Invite token"`
}

// Apply handles POST /api/applications/apply.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if !authz.IsPersonal(r) {
		respond.Message(w, http.StatusForbidden, "Only personal accounts can apply to camps")
		return
	}
	cu, _ := auth.CurrentUser(r)

	var req applyRequest
	if err := respond.DecodeLenient(r, &req); err != nil {
		respond.Err(w, h.Log, err, "apply")
		return
	}
	req.CampID = strings.TrimSpace(req.CampID)
	req.CallSlotID = strings.TrimSpace(req.CallSlotID)
	req.ApplicationData.Motivation = strings.TrimSpace(htmlsanitize.StripTags(req.ApplicationData.Motivation))
	req.ApplicationData.Experience = strings.TrimSpace(htmlsanitize.StripTags(req.ApplicationData.Experience))

	if v := inputval.Validate(req); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	campID, _ := primitive.ObjectIDFromHex(req.CampID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	applicant, err := h.Users.GetByID(ctx, cu.ObjectID())
	if err != nil {
		respond.Err(w, h.Log, err, "apply: load applicant")
		return
	}
	if missing := applicant.MissingProfileFields(); len(missing) > 0 {
		respond.Fields(w, http.StatusBadRequest, "Please complete your profile before applying", map[string]any{
			"incompleteProfile": missing,
		})
		return
	}

	camp, err := h.Camps.GetByID(ctx, campID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errCampNotFound, "apply")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "apply: load camp", err)
		return
	}
	if !camp.AcceptingNewMembers || camp.Status != models.CampActive {
		respond.Message(w, http.StatusBadRequest, "This camp is not accepting new members")
		return
	}

	if existing, err := h.Applications.FindActive(ctx, applicant.ID, camp.ID); err == nil {
		respond.Fields(w, http.StatusBadRequest, "You have already applied to this camp", map[string]any{
			"status": existing.Status,
		})
		return
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		respond.ServerError(w, h.Log, "apply: duplicate check", err)
		return
	}

	status := models.AppPendingOrientation
	var slot *primitive.ObjectID
	if req.CallSlotID != "" {
		id, _ := primitive.ObjectIDFromHex(req.CallSlotID)
		if _, err := h.CallSlots.Book(ctx, id, camp.ID, applicant.ID); err != nil {
			if errors.Is(err, callslotstore.ErrUnavailable) {
				respond.Message(w, http.StatusBadRequest, "Selected call slot is not available")
				return
			}
			respond.ServerError(w, h.Log, "apply: book call slot", err)
			return
		}
		slot = &id
		status = models.AppCallScheduled
	}
	req.ApplicationData.Skills = nonNil(req.ApplicationData.Skills)

	app, err := h.Applications.Create(ctx, models.Application{
		Applicant:       applicant.ID,
		Camp:            camp.ID,
		ApplicationData: req.ApplicationData,
		Status:          status,
		InviteToken:     strings.TrimSpace(req.InviteToken),
		CallSlot:        slot,
	})
	if err != nil {
		h.releaseSlot(ctx, slot, applicant.ID)
		respond.ServerError(w, h.Log, "apply: create", err)
		return
	}

	if err := h.Camps.IncStats(ctx, camp.ID, 0, 1); err != nil {
		h.Log.Warn("failed to bump application count", zap.Error(err), zap.String("camp_id", camp.ID.Hex()))
	}
	if app.InviteToken != "" {
		if ok, err := h.Invites.MarkApplied(ctx, app.InviteToken, camp.ID); err != nil {
			h.Log.Warn("failed to mark invite applied", zap.Error(err))
		} else if ok {
			h.Notify.Publish(notify.CampRoom(camp.ID.Hex()), notify.EventInviteApplied, map[string]any{
				"applicationId": app.ID,
			})
		}
	}

	h.Metrics.ApplicationSubmitted()
	h.Audit.Member(ctx, applicant.ID, applicant.ID, models.ActivityApplicationSubmit, map[string]any{
		"camp_id":        camp.ID.Hex(),
		"application_id": app.ID.Hex(),
	})
	h.Notify.Publish(notify.CampRoom(camp.ID.Hex()), notify.EventApplicationNew, map[string]any{
		"applicationId": app.ID,
		"applicant":     applicant.DisplayName(),
		"status":        app.Status,
	})
	mailer.Deliver(h.Mail, h.Log, mailer.BuildApplicationReceivedEmail(camp.ContactEmail, mailer.ApplicationEmailData{
		ApplicantName: applicant.DisplayName(),
		CampName:      camp.Name,
		URL:           h.BaseURL + "/camp/applications",
	}))

	respond.Created(w, map[string]any{
		"message":     "Application submitted successfully",
		"application": app,
	})
}

// releaseSlot gives back the seat user held on slot, if any.
func (h *Handler) releaseSlot(ctx context.Context, slot *primitive.ObjectID, user primitive.ObjectID) {
	if slot == nil {
		return
	}
	if _, err := h.CallSlots.Release(ctx, *slot, user); err != nil {
		h.Log.Warn("call slot seat not released", zap.String("slot", slot.Hex()), zap.Error(err))
	}
}

// Check handles GET /api/applications/check/{campId}.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	campID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}
	cu, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	app, err := h.Applications.Latest(ctx, cu.ObjectID(), campID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.OK(w, map[string]any{"hasApplied": false, "status": nil, "application": nil})
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "check application", err)
		return
	}
	// A terminal application does not stop the user applying again.
	respond.OK(w, map[string]any{
		"hasApplied":  !models.IsTerminalApplicationStatus(app.Status),
		"status":      app.Status,
		"application": app,
	})
}

// MyApplications handles GET /api/applications/my-applications.
func (h *Handler) MyApplications(w http.ResponseWriter, r *http.Request) {
	cu, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	apps, err := h.Applications.ListByApplicant(ctx, cu.ObjectID())
	if err != nil {
		respond.ServerError(w, h.Log, "my applications", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.Camp)
	}
	campsByID, err := h.campsByID(ctx, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "my applications: camps", err)
		return
	}

	out := make([]map[string]any, 0, len(apps))
	for _, a := range apps {
		row := map[string]any{"application": a}
		if c, ok := campsByID[a.Camp]; ok {
			row["camp"] = map[string]any{
				"_id":    c.ID,
				"name":   c.Name,
				"slug":   c.Slug,
				"photos": c.PhotoURLs(),
			}
		}
		out = append(out, row)
	}
	respond.OK(w, map[string]any{"applications": out})
}

// CampApplications handles GET /api/applications/camp/{campId}?status=.
func (h *Handler) CampApplications(w http.ResponseWriter, r *http.Request) {
	campID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid camp ID")
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !models.IsValidApplicationStatus(status) {
		respond.Message(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.managedCamp(ctx, r, campID); err != nil {
		respond.Err(w, h.Log, err, "camp applications")
		return
	}

	apps, err := h.Applications.ListByCamp(ctx, campID, status)
	if err != nil {
		respond.ServerError(w, h.Log, "camp applications", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.Applicant)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "camp applications: applicants", err)
		return
	}

	out := make([]map[string]any, 0, len(apps))
	for _, a := range apps {
		row := map[string]any{"application": a}
		if u, ok := users[a.Applicant]; ok {
			row["applicant"] = u
		}
		out = append(out, row)
	}
	respond.OK(w, map[string]any{"applications": out, "total": len(out)})
}

// managedCamp loads campID and checks that the caller may review it.
func (h *Handler) managedCamp(ctx context.Context, r *http.Request, campID primitive.ObjectID) (*models.Camp, error) {
	c, err := h.Camps.GetByID(ctx, campID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	if err != nil {
		return nil, err
	}
	if !authz.CanManageCamp(r, c) {
		return nil, errNoAccess
	}
	return c, nil
}

func (h *Handler) campsByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Camp, error) {
	out := make(map[primitive.ObjectID]models.Camp, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := h.Camps.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
