// internal/app/features/callslots/handler.go
package callslots

import (
	"context"
	"errors"
	"net/http"
	"time"

	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	callslotstore "github.com/dalemusser/camphub/internal/app/store/callslots"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const MaxParticipants = 50

type Handler struct {
	CallSlots    *callslotstore.Store
	Camps        *campstore.Store
	Applications *applicationstore.Store
	Users        *userstore.Store
	Log          *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		CallSlots:    callslotstore.New(db),
		Camps:        campstore.New(db),
		Applications: applicationstore.New(db),
		Users:        userstore.New(db),
		Log:          logger,
	}
}

var (
	errCampNotFound = respond.NotFound("Camp not found")
	errSlotNotFound = respond.NotFound("Call slot not found")
	errNoAccess     = respond.Forbidden("Access denied")
)

func (h *Handler) camp(ctx context.Context, id primitive.ObjectID) (*models.Camp, error) {
	c, err := h.Camps.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	return c, err
}

// managedCamp loads the {campId} camp and requires the caller to manage it.
func (h *Handler) managedCamp(ctx context.Context, r *http.Request, id primitive.ObjectID) (*models.Camp, error) {
	c, err := h.camp(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageCamp(r, c) {
		return nil, errNoAccess
	}
	return c, nil
}

// managedSlot loads the {id} slot and requires the caller to manage its camp.
func (h *Handler) managedSlot(ctx context.Context, r *http.Request) (*models.CallSlot, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, respond.BadRequest("Invalid call slot ID")
	}
	s, err := h.CallSlots.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := h.managedCamp(ctx, r, s.CampID); err != nil {
		return nil, err
	}
	return s, nil
}

func campParam(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		return primitive.NilObjectID, respond.BadRequest("Invalid camp ID")
	}
	return id, nil
}

// Available handles GET /api/call-slots/available/{campId}: open slots
// from today on, for applicants picking an intro call.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	id, err := campParam(r)
	if err != nil {
		respond.Err(w, h.Log, err, "available call slots")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.camp(ctx, id); err != nil {
		respond.Err(w, h.Log, err, "available call slots")
		return
	}
	out, err := h.CallSlots.ListAvailable(ctx, id, time.Now())
	if err != nil {
		respond.ServerError(w, h.Log, "available call slots", err)
		return
	}
	respond.OK(w, out)
}

// ForCamp handles GET /api/call-slots/camp/{campId}.
func (h *Handler) ForCamp(w http.ResponseWriter, r *http.Request) {
	id, err := campParam(r)
	if err != nil {
		respond.Err(w, h.Log, err, "camp call slots")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.managedCamp(ctx, r, id); err != nil {
		respond.Err(w, h.Log, err, "camp call slots")
		return
	}
	out, err := h.CallSlots.ListByCamp(ctx, id)
	if err != nil {
		respond.ServerError(w, h.Log, "camp call slots", err)
		return
	}
	respond.OK(w, out)
}

type createRequest struct {
	CampID          string `json:"campId" validate:"required,objectid" label:"Camp"`
	Date            string `json:"date" validate:"required,isodate" label:"Date"`
	StartTime       string `json:"startTime" validate:"required,clock" label:"Start time"`
	EndTime         string `json:"endTime" validate:"required,clock" label:"End time"`
	MaxParticipants int    `json:"maxParticipants" validate:"between=0|50" label:"Max participants"`
}

// Create handles POST /api/call-slots.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "create call slot")
		return
	}
	v := inputval.Validate(req)
	if !v.HasErrors() && req.EndTime <= req.StartTime {
		v.Add("endTime", "End time must be after start time.")
	}
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	campID, _ := primitive.ObjectIDFromHex(req.CampID)
	date, _ := time.Parse(inputval.DateLayout, req.Date)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.managedCamp(ctx, r, campID); err != nil {
		respond.Err(w, h.Log, err, "create call slot")
		return
	}
	slot, err := h.CallSlots.Create(ctx, models.CallSlot{
		CampID:          campID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		respond.ServerError(w, h.Log, "create call slot", err)
		return
	}
	h.Log.Info("call slot created", zap.String("camp", campID.Hex()), zap.String("slot", slot.ID.Hex()))
	respond.Created(w, slot)
}

type updateRequest struct {
	Date            *string `json:"date"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	MaxParticipants *int    `json:"maxParticipants"`
	IsAvailable     *bool   `json:"isAvailable"`
}

// Update handles PUT /api/call-slots/{id}. Only the fields present change.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.DecodeLenient(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update call slot")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	slot, err := h.managedSlot(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "update call slot")
		return
	}

	var v inputval.Result
	set := bson.M{}
	if req.Date != nil {
		d, err := time.Parse(inputval.DateLayout, *req.Date)
		if err != nil {
			v.Add("date", "Date must be a date like 2026-08-30.")
		}
		set["date"] = d
	}
	start, end := slot.StartTime, slot.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
		set["start_time"] = start
	}
	if req.EndTime != nil {
		end = *req.EndTime
		set["end_time"] = end
	}
	if req.StartTime != nil || req.EndTime != nil {
		_, serr := time.Parse(inputval.ClockLayout, start)
		_, eerr := time.Parse(inputval.ClockLayout, end)
		switch {
		case serr != nil || eerr != nil:
			v.Add("startTime", "Times must look like 18:30.")
		case end <= start:
			v.Add("endTime", "End time must be after start time.")
		}
	}
	if req.MaxParticipants != nil {
		v.Range("maxParticipants", "Max participants", *req.MaxParticipants, 1, MaxParticipants)
		if *req.MaxParticipants < slot.CurrentParticipants {
			v.Add("maxParticipants", "Max participants cannot be below the number already booked.")
		}
		set["max_participants"] = *req.MaxParticipants
	}
	if req.IsAvailable != nil {
		set["is_available"] = *req.IsAvailable
	} else if req.MaxParticipants != nil {
		set["is_available"] = slot.IsAvailable || slot.IsFull()
	}
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	if len(set) == 0 {
		respond.OK(w, slot)
		return
	}
	out, err := h.CallSlots.Update(ctx, slot.ID, set)
	if err != nil {
		respond.ServerError(w, h.Log, "update call slot", err)
		return
	}
	respond.OK(w, out)
}

// Delete handles DELETE /api/call-slots/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	slot, err := h.managedSlot(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "delete call slot")
		return
	}
	if err := h.CallSlots.Delete(ctx, slot.ID); err != nil {
		respond.ServerError(w, h.Log, "delete call slot", err)
		return
	}
	h.Log.Info("call slot deleted", zap.String("slot", slot.ID.Hex()),
		zap.Int("booked", slot.CurrentParticipants))
	respond.Message(w, http.StatusOK, "Call slot deleted successfully")
}

type applicant struct {
	ID                primitive.ObjectID `json:"_id"`
	FirstName         string             `json:"firstName"`
	LastName          string             `json:"lastName"`
	Email             string             `json:"email"`
	ApplicationID     primitive.ObjectID `json:"applicationId"`
	ApplicationStatus string             `json:"applicationStatus"`
	AppliedAt         time.Time          `json:"appliedAt"`
}

// Details handles GET /api/call-slots/{id}/details: the slot and everyone
// whose application picked it.
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	slot, err := h.managedSlot(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "call slot details")
		return
	}
	apps, err := h.Applications.Find(ctx, bson.M{"camp": slot.CampID, "call_slot": slot.ID}, nil)
	if err != nil {
		respond.ServerError(w, h.Log, "call slot details", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.Applicant)
	}
	users, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "call slot details: applicants", err)
		return
	}
	out := make([]applicant, 0, len(apps))
	for _, a := range apps {
		u, ok := users[a.Applicant]
		if !ok {
			continue
		}
		out = append(out, applicant{
			ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
			ApplicationID: a.ID, ApplicationStatus: a.Status, AppliedAt: a.AppliedAt,
		})
	}
	respond.OK(w, map[string]any{"callSlot": slot, "applicants": out})
}
