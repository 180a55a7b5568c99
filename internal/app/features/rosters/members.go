// internal/app/features/rosters/members.go
package rosters

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RemovedNote is recorded on members and applications removed from a roster.
const RemovedNote = "Removed from active roster"

type addMemberRequest struct {
	FirstName      string     `json:"firstName" validate:"required" label:"First name"`
	LastName       string     `json:"lastName" validate:"required" label:"Last name"`
	Email          string     `json:"email" validate:"required,email" label:"Email"`
	PlayaName      string     `json:"playaName" validate:"max=100" label:"Playa name"`
	City           string     `json:"city" validate:"max=100" label:"City"`
	YearsBurned    int        `json:"yearsBurned" validate:"between=0|50" label:"Years burned"`
	HasTicket      bool       `json:"hasTicket"`
	HasVehiclePass bool       `json:"hasVehiclePass"`
	ArrivalDate    *time.Time `json:"arrivalDate"`
	DepartureDate  *time.Time `json:"departureDate"`
	Skills         []string   `json:"skills"`
	DuesStatus     string     `json:"duesStatus" validate:"oneof=Paid Unpaid" label:"Dues status"`
}

func (req *addMemberRequest) validate() inputval.Result {
	req.FirstName = normalize.Name(req.FirstName)
	req.LastName = normalize.Name(req.LastName)
	req.Email = normalize.Email(req.Email)
	req.PlayaName = strings.TrimSpace(req.PlayaName)
	req.City = strings.TrimSpace(req.City)
	if req.DuesStatus == "" {
		req.DuesStatus = models.DuesUnpaid
	}
	return inputval.Validate(req)
}

// AddMember handles POST /api/rosters/{id}/members. Unknown emails
// get a new personal account and a link to set its password.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := respond.DecodeLenient(r, &req); err != nil {
		respond.Err(w, h.Log, err, "add roster member")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	roster, c, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "add roster member")
		return
	}
	if roster.IsArchived {
		respond.Message(w, http.StatusBadRequest, "Cannot add members to an archived roster")
		return
	}

	u, created, err := h.findOrCreateUser(ctx, req)
	if err != nil {
		respond.ServerError(w, h.Log, "add roster member: user", err)
		return
	}
	if roster.HasUser(u.ID) {
		respond.Message(w, http.StatusBadRequest, "User is already a member of this roster")
		return
	}

	prior, err := h.Members.FindByCampUser(ctx, c.ID, u.ID)
	wasActive := err == nil && prior.Status == models.MemberActive
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		respond.ServerError(w, h.Log, "add roster member: member", err)
		return
	}
	m, err := h.Members.Activate(ctx, c.ID, u.ID, nil)
	if err != nil {
		respond.ServerError(w, h.Log, "add roster member: activate", err)
		return
	}
	_, err = h.Rosters.AddEntry(ctx, roster.ID, models.RosterEntry{
		Member: m.ID, User: u.ID, AddedBy: &actor, DuesStatus: req.DuesStatus,
	})
	if errors.Is(err, rosterstore.ErrAlreadyOnRoster) {
		respond.Message(w, http.StatusBadRequest, "User is already a member of this roster")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "add roster member: entry", err)
		return
	}
	if !wasActive {
		if err := h.Camps.IncStats(ctx, c.ID, 1, 0); err != nil {
			h.Log.Warn("failed to bump member count", zap.Error(err), zap.String("camp_id", c.ID.Hex()))
		}
	}

	if created {
		if token, err := h.Resets.Create(ctx, u.ID, u.Email); err != nil {
			h.Log.Warn("failed to issue set-password link", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		} else {
			mailer.Deliver(h.Mail, h.Log, mailer.BuildMemberAddedEmail(u.Email, c.Name, h.BaseURL+"/reset-password?token="+token))
		}
	}
	h.Audit.Member(ctx, u.ID, actor, models.ActivityMemberAdded, map[string]any{
		"camp_id": c.ID.Hex(), "roster_id": roster.ID.Hex(), "account_created": created,
	})
	h.rosterUpdated(c.ID, roster.ID)

	respond.Created(w, map[string]any{
		"message": "Member added successfully",
		"member":  m,
		"user":    u,
	})
}

func (h *Handler) findOrCreateUser(ctx context.Context, req addMemberRequest) (*models.User, bool, error) {
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	pw, err := auth.RandomPassword()
	if err != nil {
		return nil, false, err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return nil, false, err
	}
	skills := req.Skills
	if skills == nil {
		skills = []string{}
	}
	nu, err := h.Users.Create(ctx, models.User{
		Email:          req.Email,
		PasswordHash:   hash,
		AccountType:    models.AccountPersonal,
		Role:           models.RoleMember,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PlayaName:      req.PlayaName,
		City:           req.City,
		YearsBurned:    req.YearsBurned,
		HasTicket:      req.HasTicket,
		HasVehiclePass: req.HasVehiclePass,
		ArrivalDate:    req.ArrivalDate,
		DepartureDate:  req.DepartureDate,
		Skills:         skills,
		AutoCreated:    true,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Created concurrently; use the winner.
		u, err = h.Users.GetByEmail(ctx, req.Email)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return &nu, true, nil
}

// RemoveMember handles DELETE /api/rosters/members/{memberId}. The member
// leaves the active roster and is marked rejected, as is their application.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid member ID")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.GetByID(ctx, memberID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Message(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "remove member: load", err)
		return
	}
	c, err := h.camp(ctx, m.Camp)
	if err != nil {
		respond.Err(w, h.Log, err, "remove member")
		return
	}
	if !authz.CanManageCamp(r, c) {
		respond.Err(w, h.Log, errNoAccess, "remove member")
		return
	}
	active, err := h.Rosters.Active(ctx, c.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Message(w, http.StatusNotFound, "No active roster found")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "remove member: roster", err)
		return
	}

	removed, err := h.Rosters.RemoveFromActive(ctx, c.ID, m.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "remove member: pull", err)
		return
	}
	if err := h.Members.SetStatus(ctx, m.ID, models.MemberRejected, RemovedNote); err != nil {
		respond.ServerError(w, h.Log, "remove member: status", err)
		return
	}
	if _, err := h.Applications.RejectForMember(ctx, c.ID, m.User, actor, RemovedNote); err != nil {
		respond.ServerError(w, h.Log, "remove member: applications", err)
		return
	}
	if removed && m.Status == models.MemberActive {
		if err := h.Camps.IncStats(ctx, c.ID, -1, 0); err != nil {
			h.Log.Warn("failed to drop member count", zap.Error(err), zap.String("camp_id", c.ID.Hex()))
		}
	}

	h.Audit.Member(ctx, m.User, actor, models.ActivityMemberRemoved, map[string]any{
		"camp_id": c.ID.Hex(), "roster_id": active.ID.Hex(),
	})
	h.rosterUpdated(c.ID, active.ID)
	respond.OK(w, map[string]any{"message": "Member removed from roster and marked as rejected"})
}

type duesRequest struct {
	DuesStatus string `json:"duesStatus" validate:"required,oneof=Paid Unpaid" label:"Dues status"`
}

// SetDues handles PUT /api/rosters/{id}/members/{memberId}/dues.
func (h *Handler) SetDues(w http.ResponseWriter, r *http.Request) {
	var req duesRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "set dues")
		return
	}
	if v := inputval.Validate(req); v.HasErrors() {
		respond.Message(w, http.StatusBadRequest, v.First())
		return
	}
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid member ID")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	roster, c, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "set dues")
		return
	}
	entry, ok := roster.Entry(memberID)
	if !ok {
		respond.Message(w, http.StatusNotFound, "Member not found in roster")
		return
	}
	if _, err := h.Rosters.SetDues(ctx, roster.ID, memberID, req.DuesStatus); err != nil {
		if errors.Is(err, rosterstore.ErrNotOnRoster) {
			respond.Message(w, http.StatusNotFound, "Member not found in roster")
			return
		}
		respond.ServerError(w, h.Log, "set dues", err)
		return
	}
	if err := h.Applications.SetDuesForMember(ctx, c.ID, entry.User, req.DuesStatus); err != nil {
		h.Log.Warn("failed to mirror dues onto application", zap.Error(err), zap.String("user_id", entry.User.Hex()))
	}

	h.Audit.Member(ctx, entry.User, actor, models.ActivityDuesToggle, map[string]any{
		"camp_id": c.ID.Hex(), "roster_id": roster.ID.Hex(),
		"from": entry.DuesStatus, "to": req.DuesStatus,
	})
	respond.OK(w, map[string]any{
		"message":    "Dues status updated successfully",
		"duesStatus": req.DuesStatus,
		"memberId":   memberID,
	})
}

// overridesRequest fields are applied only when present.
type overridesRequest struct {
	PlayaName   *string   `json:"playaName"`
	YearsBurned *int      `json:"yearsBurned"`
	Skills      *[]string `json:"skills"`
}

// SetOverrides handles PUT /api/rosters/{id}/members/{memberId}/overrides.
func (h *Handler) SetOverrides(w http.ResponseWriter, r *http.Request) {
	var req overridesRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "set overrides")
		return
	}
	v := &inputval.Result{}
	if req.PlayaName != nil {
		s := strings.TrimSpace(*req.PlayaName)
		req.PlayaName = &s
		v.MaxLen("playaName", "Playa name", s, 100)
	}
	if req.YearsBurned != nil {
		v.Range("yearsBurned", "Years burned", *req.YearsBurned, 0, 50)
	}
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberId"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid member ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	roster, _, err := h.managedRoster(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "set overrides")
		return
	}
	entry, ok := roster.Entry(memberID)
	if !ok {
		respond.Message(w, http.StatusNotFound, "Member not found in roster")
		return
	}
	o := entry.Overrides
	if req.PlayaName != nil {
		o.PlayaName = req.PlayaName
	}
	if req.YearsBurned != nil {
		o.YearsBurned = req.YearsBurned
	}
	if req.Skills != nil {
		o.Skills = *req.Skills
	}
	updated, err := h.Rosters.SetOverrides(ctx, roster.ID, memberID, o)
	if err != nil {
		respond.ServerError(w, h.Log, "set overrides", err)
		return
	}
	line, _ := updated.Entry(memberID)
	respond.OK(w, map[string]any{
		"message": "Member overrides updated successfully",
		"member":  line,
	})
}
