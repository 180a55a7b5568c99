// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	taskstore "github.com/dalemusser/camphub/internal/app/store/tasks"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
)

type Handler struct {
	Tasks   *taskstore.Store
	Camps   *campstore.Store
	Members *memberstore.Store
	Users   *userstore.Store
	Mail    mailer.Sender
	Notify  notify.Publisher
	BaseURL string
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, mail mailer.Sender, pub notify.Publisher, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Tasks:   taskstore.New(db),
		Camps:   campstore.New(db),
		Members: memberstore.New(db),
		Users:   userstore.New(db),
		Mail:    mail,
		Notify:  notify.Or(pub),
		BaseURL: strings.TrimRight(baseURL, "/"),
		Log:     logger,
	}
}

var (
	errCampNotFound = respond.NotFound("Camp not found")
	errTaskNotFound = respond.NotFound("Task not found")
	errNoAccess     = respond.Forbidden("Access denied")
)

// callerCamp resolves the camp the caller manages. Admins name it with
// ?campId=.
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
	if !authz.IsCampAccount(r) && !authz.IsAdmin(r) {
		return nil, respond.Forbidden("Camp account required")
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

// task loads the {id} task together with its camp.
func (h *Handler) task(ctx context.Context, r *http.Request) (*models.Task, *models.Camp, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, nil, respond.BadRequest("Invalid task ID")
	}
	t, err := h.Tasks.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, errTaskNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	c, err := h.camp(ctx, t.CampID)
	if err != nil {
		return nil, nil, err
	}
	return t, c, nil
}

// canView reports whether the caller manages camp or is an active member.
func (h *Handler) canView(ctx context.Context, r *http.Request, camp *models.Camp) (bool, error) {
	if authz.CanManageCamp(r, camp) {
		return true, nil
	}
	_, uid, _ := authz.UserCtx(r)
	return h.Members.IsActiveMember(ctx, camp.ID, uid)
}

// List handles GET /api/tasks for the caller's camp.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "list tasks")
		return
	}
	out, err := h.Tasks.ListByCamp(ctx, c.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "list tasks", err)
		return
	}
	respond.OK(w, map[string]any{"tasks": out, "total": len(out)})
}

// ForCamp handles GET /api/tasks/camp/{campId}.
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
		respond.Err(w, h.Log, err, "camp tasks")
		return
	}
	ok, err := h.canView(ctx, r, c)
	if err != nil {
		respond.ServerError(w, h.Log, "camp tasks: membership", err)
		return
	}
	if !ok {
		respond.Err(w, h.Log, errNoAccess, "camp tasks")
		return
	}
	out, err := h.Tasks.ListByCamp(ctx, c.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "camp tasks", err)
		return
	}
	respond.OK(w, map[string]any{"tasks": out, "total": len(out)})
}

// Mine handles GET /api/tasks/my-tasks.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	_, uid, _ := authz.UserCtx(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	out, err := h.Tasks.ListAssigned(ctx, uid)
	if err != nil {
		respond.ServerError(w, h.Log, "my tasks", err)
		return
	}
	respond.OK(w, map[string]any{"tasks": out, "total": len(out)})
}

// Assigned handles GET /api/tasks/assigned/{userId}. Users see their own
// tasks, admins see everything, and camp accounts see the user's tasks in
// their camp.
func (h *Handler) Assigned(w http.ResponseWriter, r *http.Request) {
	target, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	_, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Tasks.ListAssigned(ctx, target)
	if err != nil {
		respond.ServerError(w, h.Log, "assigned tasks", err)
		return
	}
	if target == uid || authz.IsAdmin(r) {
		respond.OK(w, map[string]any{"tasks": out, "total": len(out)})
		return
	}
	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, errNoAccess, "assigned tasks")
		return
	}
	mine := make([]models.Task, 0, len(out))
	for _, t := range out {
		if t.CampID == c.ID {
			mine = append(mine, t)
		}
	}
	respond.OK(w, map[string]any{"tasks": mine, "total": len(mine)})
}

// notifyAssigned tells each new assignee about t.
func (h *Handler) notifyAssigned(ctx context.Context, camp *models.Camp, t *models.Task, users []primitive.ObjectID) {
	if len(users) == 0 {
		return
	}
	for _, id := range users {
		h.Notify.Publish(notify.UserRoom(id.Hex()), notify.EventTaskAssigned, map[string]any{
			"task": t, "campName": camp.Name,
		})
	}
	byID, err := h.Users.FindByIDs(ctx, users)
	if err != nil {
		h.Log.Warn("task assignees not loaded", zap.String("task", t.TaskCode), zap.Error(err))
		return
	}
	d := mailer.TaskEmailData{CampName: camp.Name, TaskCode: t.TaskCode, Title: t.Title, URL: h.BaseURL + "/tasks"}
	if t.DueDate != nil {
		d.DueDate = t.DueDate.Format("Jan 2, 2006")
	}
	for _, id := range users {
		if u, ok := byID[id]; ok && u.Preferences.EmailNotifications {
			mailer.Deliver(h.Mail, h.Log, mailer.BuildTaskAssignedEmail(u.Email, d))
		}
	}
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, respond.BadRequest("Invalid due date")
}

// parseIDs converts hex ids, dropping duplicates.
func parseIDs(raw []string) ([]primitive.ObjectID, error) {
	seen := make(map[primitive.ObjectID]bool, len(raw))
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, respond.BadRequest("Invalid user ID: %s", s)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// existingUsers fails when any id does not name a user.
func (h *Handler) existingUsers(ctx context.Context, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	byID, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return respond.BadRequest("Assigned user not found: %s", id.Hex())
		}
	}
	return nil
}
