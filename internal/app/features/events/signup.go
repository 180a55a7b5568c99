package events

import (
	"context"
	"errors"
	"net/http"

	eventstore "github.com/dalemusser/camphub/internal/app/store/events"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.uber.org/zap"
)

// SignUp handles POST /api/shifts/shifts/{shiftId}/signup. Only active
// members of the event's camp may sign up. Signing up closes one of the
// member's open volunteer tasks for the event.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	_, uid, _ := authz.UserCtx(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ev, sh, err := h.shift(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "shift signup")
		return
	}
	ok, err := h.Members.IsActiveMember(ctx, ev.CampID, uid)
	if err != nil {
		respond.ServerError(w, h.Log, "shift signup: membership", err)
		return
	}
	if !ok {
		respond.Message(w, http.StatusForbidden, "Only approved camp members can sign up for shifts")
		return
	}
	if ev.Status != models.EventActive || sh.Status != models.EventActive {
		respond.Message(w, http.StatusBadRequest, "This shift is not open for sign-ups")
		return
	}
	out, err := h.Events.SignUp(ctx, sh.ID, uid, sh.MaxSignUps)
	switch {
	case errors.Is(err, eventstore.ErrAlreadySignedUp):
		respond.Message(w, http.StatusBadRequest, "You are already signed up for this shift")
		return
	case errors.Is(err, eventstore.ErrShiftFull):
		respond.Fields(w, http.StatusConflict, "This shift is now full. Please try a different shift.", map[string]any{
			"currentSignUps": len(sh.MemberIDs), "maxSignUps": sh.MaxSignUps,
		})
		return
	case err != nil:
		respond.ServerError(w, h.Log, "shift signup", err)
		return
	}
	sh, _ = out.Shift(sh.ID)

	closed, err := h.Tasks.CloseOpenForEvent(ctx, uid, ev.ID)
	if err != nil {
		h.Log.Warn("volunteer task not closed", zap.String("event", ev.ID.Hex()), zap.Error(err))
	}
	h.Notify.Publish(notify.CampRoom(ev.CampID.Hex()), notify.EventShiftSignup, map[string]any{
		"eventId": ev.ID, "shiftId": sh.ID, "userId": uid, "currentSignUps": len(sh.MemberIDs),
	})
	respond.Fields(w, http.StatusOK, "Successfully signed up for shift", map[string]any{
		"shiftId":        sh.ID,
		"eventId":        ev.ID,
		"currentSignUps": len(sh.MemberIDs),
		"maxSignUps":     sh.MaxSignUps,
		"taskCompleted":  closed,
	})
}

// CancelSignUp handles DELETE /api/shifts/shifts/{shiftId}/signup.
func (h *Handler) CancelSignUp(w http.ResponseWriter, r *http.Request) {
	_, uid, _ := authz.UserCtx(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, sh, err := h.shift(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "cancel shift signup")
		return
	}
	if _, err := h.Events.Cancel(ctx, sh.ID, uid); err != nil {
		if errors.Is(err, eventstore.ErrNotSignedUp) {
			respond.Message(w, http.StatusBadRequest, "Not signed up for this shift")
			return
		}
		respond.ServerError(w, h.Log, "cancel shift signup", err)
		return
	}
	respond.Fields(w, http.StatusOK, "Successfully cancelled shift signup", map[string]any{
		"shiftId": sh.ID, "memberId": uid,
	})
}
