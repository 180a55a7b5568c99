// internal/app/features/events/handler.go
package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	eventstore "github.com/dalemusser/camphub/internal/app/store/events"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	taskstore "github.com/dalemusser/camphub/internal/app/store/tasks"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Events  *eventstore.Store
	Tasks   *taskstore.Store
	Camps   *campstore.Store
	Members *memberstore.Store
	Users   *userstore.Store
	Notify  notify.Publisher
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, pub notify.Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		Events:  eventstore.New(db),
		Tasks:   taskstore.New(db),
		Camps:   campstore.New(db),
		Members: memberstore.New(db),
		Users:   userstore.New(db),
		Notify:  notify.Or(pub),
		Log:     logger,
	}
}

var (
	errCampNotFound  = respond.NotFound("Camp not found")
	errEventNotFound = respond.NotFound("Event not found")
	errShiftNotFound = respond.NotFound("Shift not found")
	errLeadRequired  = respond.Forbidden("Camp owner or Camp Lead access required")
	errOtherCamp     = respond.Forbidden("Access denied. Event belongs to different camp.")
)

func (h *Handler) camp(ctx context.Context, id primitive.ObjectID) (*models.Camp, error) {
	c, err := h.Camps.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	return c, err
}

// callerCamp resolves the camp whose events the caller manages. Anyone
// may name it with ?campId= as long as they manage it; camp accounts and
// camp leads otherwise get their own.
func (h *Handler) callerCamp(ctx context.Context, r *http.Request) (*models.Camp, error) {
	if q := r.URL.Query().Get("campId"); q != "" {
		id, err := primitive.ObjectIDFromHex(q)
		if err != nil {
			return nil, respond.BadRequest("Invalid camp ID")
		}
		c, err := h.camp(ctx, id)
		if err != nil {
			return nil, err
		}
		if !authz.CanManageCamp(r, c) {
			return nil, errLeadRequired
		}
		return c, nil
	}
	if !authz.IsCampAccount(r) && !authz.HasRole(r, models.RoleCampLead) {
		return nil, errLeadRequired
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

// event loads the {eventId} event and its camp.
func (h *Handler) event(ctx context.Context, r *http.Request) (*models.Event, *models.Camp, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "eventId"))
	if err != nil {
		return nil, nil, respond.BadRequest("Invalid event ID")
	}
	ev, err := h.Events.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, errEventNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	c, err := h.camp(ctx, ev.CampID)
	if err != nil {
		return nil, nil, err
	}
	return ev, c, nil
}

// managedEvent is event plus the requirement that the caller manages the
// event's camp.
func (h *Handler) managedEvent(ctx context.Context, r *http.Request) (*models.Event, *models.Camp, error) {
	ev, c, err := h.event(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	if !authz.CanManageCamp(r, c) {
		return nil, nil, errOtherCamp
	}
	return ev, c, nil
}

// shift loads the event holding the {shiftId} shift.
func (h *Handler) shift(ctx context.Context, r *http.Request) (*models.Event, models.Shift, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "shiftId"))
	if err != nil {
		return nil, models.Shift{}, respond.BadRequest("Invalid shift ID")
	}
	ev, err := h.Events.GetByShift(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.Shift{}, errShiftNotFound
	}
	if err != nil {
		return nil, models.Shift{}, err
	}
	sh, _ := ev.Shift(id)
	return ev, sh, nil
}

// List handles GET /api/shifts/events for the caller's camp.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "list events")
		return
	}
	out, err := h.Events.ListByCamps(ctx, c.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "list events", err)
		return
	}
	respond.OK(w, map[string]any{"events": out})
}

// Mine handles GET /api/shifts/my-events: events of every camp the
// caller is an active member of.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	_, uid, _ := authz.UserCtx(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	camps, err := h.Members.ActiveCampsFor(ctx, uid)
	if err != nil {
		respond.ServerError(w, h.Log, "my events: camps", err)
		return
	}
	out, err := h.Events.ListByCamps(ctx, camps...)
	if err != nil {
		respond.ServerError(w, h.Log, "my events", err)
		return
	}
	respond.OK(w, map[string]any{"events": out})
}

// Get handles GET /api/shifts/events/{eventId} for the camp's managers
// and active members.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, c, err := h.event(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "get event")
		return
	}
	if !authz.CanManageCamp(r, c) {
		_, uid, _ := authz.UserCtx(r)
		ok, err := h.Members.IsActiveMember(ctx, c.ID, uid)
		if err != nil {
			respond.ServerError(w, h.Log, "get event: membership", err)
			return
		}
		if !ok {
			respond.Message(w, http.StatusForbidden, "Access denied - not an approved camp member")
			return
		}
	}
	respond.OK(w, map[string]any{"event": ev})
}

type shiftInput struct {
	Title       string `json:"title" validate:"required,max=200" label:"Shift title"`
	Description string `json:"description" validate:"max=2000" label:"Shift description"`
	Date        string `json:"date" validate:"required,isodate" label:"Shift date"`
	StartTime   string `json:"startTime" validate:"required,clock" label:"Start time"`
	EndTime     string `json:"endTime" validate:"required,clock" label:"End time"`
	MaxSignUps  int    `json:"maxSignUps" validate:"between=1|500" label:"Max sign-ups"`
}

type eventRequest struct {
	EventName   string       `json:"eventName" validate:"max=200" label:"Event name"`
	Description string       `json:"description" validate:"max=2000" label:"Description"`
	Shifts      []shiftInput `json:"shifts"`
}

// parse validates req and builds its shifts.
func (req *eventRequest) parse() ([]models.Shift, error) {
	req.EventName = strings.TrimSpace(htmlsanitize.StripTags(req.EventName))
	req.Description = strings.TrimSpace(htmlsanitize.StripTags(req.Description))
	if req.EventName == "" || len(req.Shifts) == 0 {
		return nil, respond.BadRequest("Event name and at least one shift are required")
	}
	for i := range req.Shifts {
		s := &req.Shifts[i]
		s.Title = strings.TrimSpace(htmlsanitize.StripTags(s.Title))
		s.Description = strings.TrimSpace(htmlsanitize.StripTags(s.Description))
	}
	if v := inputval.Validate(req); v.HasErrors() {
		return nil, respond.BadRequest("%s", v.First()).With(map[string]any{"errors": v.Errors})
	}
	out := make([]models.Shift, len(req.Shifts))
	for i, s := range req.Shifts {
		day, _ := time.Parse(inputval.DateLayout, s.Date)
		start, _ := time.Parse(inputval.DateLayout+"T"+inputval.ClockLayout, s.Date+"T"+s.StartTime)
		end, _ := time.Parse(inputval.DateLayout+"T"+inputval.ClockLayout, s.Date+"T"+s.EndTime)
		// An end at or before the start runs past midnight.
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
		out[i] = models.Shift{
			Title:       s.Title,
			Description: s.Description,
			Date:        day,
			StartTime:   start,
			EndTime:     end,
			MaxSignUps:  s.MaxSignUps,
		}
	}
	return out, nil
}

// Create handles POST /api/shifts/events.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "create event")
		return
	}
	shifts, err := req.parse()
	if err != nil {
		respond.Err(w, h.Log, err, "create event")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "create event")
		return
	}
	ev, err := h.Events.Create(ctx, models.Event{
		CampID:      c.ID,
		EventName:   req.EventName,
		Description: req.Description,
		CreatedBy:   actor,
		Shifts:      shifts,
	})
	if err != nil {
		respond.ServerError(w, h.Log, "create event", err)
		return
	}
	h.Log.Info("event created", zap.String("camp", c.ID.Hex()), zap.String("event", ev.ID.Hex()),
		zap.Int("shifts", len(ev.Shifts)))
	respond.Created(w, map[string]any{"event": ev})
}

// Update handles PUT /api/shifts/events/{eventId}. Shifts keep their
// sign-ups by position.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update event")
		return
	}
	shifts, err := req.parse()
	if err != nil {
		respond.Err(w, h.Log, err, "update event")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ev, _, err := h.managedEvent(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "update event")
		return
	}
	out, err := h.Events.Replace(ctx, ev, req.EventName, req.Description, shifts, actor)
	if err != nil {
		respond.ServerError(w, h.Log, "update event", err)
		return
	}
	respond.OK(w, map[string]any{"event": out})
}

// Delete handles DELETE /api/shifts/events/{eventId}. The camp's managers
// and the event's creator may delete it; its volunteer tasks go with it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	_, uid, _ := authz.UserCtx(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ev, c, err := h.event(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "delete event")
		return
	}
	if !authz.CanManageCamp(r, c) && ev.CreatedBy != uid {
		respond.Message(w, http.StatusForbidden, "You can only delete events from your own camp")
		return
	}
	tasks, err := h.Tasks.DeleteForEvent(ctx, ev.ID, nil)
	if err != nil {
		respond.ServerError(w, h.Log, "delete event: tasks", err)
		return
	}
	if err := h.Events.Delete(ctx, ev.ID); err != nil {
		respond.Err(w, h.Log, err, "delete event")
		return
	}
	h.Log.Info("event deleted", zap.String("event", ev.ID.Hex()), zap.Int64("tasks", tasks))
	respond.Fields(w, http.StatusOK, "Event and all related data deleted successfully", map[string]any{
		"eventId":       ev.ID,
		"eventName":     ev.EventName,
		"tasksDeleted":  tasks,
		"shiftsDeleted": len(ev.Shifts),
	})
}

// shiftDescription is the body of a volunteer shift task.
func shiftDescription(ev *models.Event, sh models.Shift) string {
	return fmt.Sprintf("Event: %s\nShift: %s\nDate: %s\nTime: %s\nDescription: %s",
		ev.EventName, sh.Title, sh.Date.Format("Mon Jan 2 2006"), sh.TimeRange(), sh.Description)
}
