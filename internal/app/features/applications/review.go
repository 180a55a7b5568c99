// internal/app/features/applications/review.go
package applications

import (
	"context"
	"errors"
	"net/http"
	"strings"

	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
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

type statusRequest struct {
	Status      string `json:"status"`
	ReviewNotes string `json:"reviewNotes"`
}

// UpdateStatus handles PUT /api/applications/{id}/status.
//
// Approval runs in one transaction: the status change, the member record,
// the roster line and the camp counters either all land or none do.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid application ID")
		return
	}
	var req statusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update application status")
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.ReviewNotes = htmlsanitize.StripTags(req.ReviewNotes)
	if !models.IsValidApplicationStatus(req.Status) {
		respond.Message(w, http.StatusBadRequest, "Invalid status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	app, err := h.Applications.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errAppNotFound, "update application status")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "update application status: load", err)
		return
	}
	camp, err := h.managedCamp(ctx, r, app.Camp)
	if err != nil {
		respond.Err(w, h.Log, err, "update application status")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	var updated *models.Application
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context, tx *txn.Tx) error {
		prev := app.Status
		u, err := h.Applications.ChangeStatus(ctx, app.ID, applicationstore.StatusChange{
			To:          req.Status,
			ReviewedBy:  actor,
			ReviewNotes: req.ReviewNotes,
		})
		if err != nil {
			return err
		}
		updated = u
		tx.OnRollback(func(ctx context.Context) error {
			_, err := h.Applications.ChangeStatus(ctx, app.ID, applicationstore.StatusChange{
				To: prev, ReviewedBy: actor, Action: "rollback",
			})
			return err
		})

		switch {
		case req.Status == models.AppApproved && prev != models.AppApproved:
			return h.admit(ctx, tx, app, actor)
		case req.Status == models.AppRejected:
			return h.demote(ctx, app, prev, models.MemberRejected, req.ReviewNotes)
		case prev == models.AppApproved && req.Status != models.AppApproved:
			// Back in the pipeline: off the roster until approved again.
			return h.demote(ctx, app, prev, models.MemberInactive, req.ReviewNotes)
		}
		return nil
	})
	if err != nil {
		respond.Err(w, h.Log, err, "update application status")
		return
	}
	if models.IsTerminalApplicationStatus(req.Status) {
		h.releaseSlot(ctx, app.CallSlot, app.Applicant)
	}

	h.Audit.Camp(ctx, camp.ID, actor, models.ActivityApplicationStatus, map[string]any{
		"application_id": app.ID.Hex(),
		"applicant_id":   app.Applicant.Hex(),
		"from":           app.Status,
		"to":             req.Status,
	})
	h.Notify.Publish(notify.UserRoom(app.Applicant.Hex()), notify.EventApplicationStatus, map[string]any{
		"applicationId": app.ID,
		"campName":      camp.Name,
		"status":        req.Status,
	})
	if applicant, err := h.Users.GetByID(ctx, app.Applicant); err == nil && applicant.Preferences.EmailNotifications {
		mailer.Deliver(h.Mail, h.Log, mailer.BuildApplicationStatusEmail(applicant.Email, mailer.ApplicationEmailData{
			ApplicantName: applicant.DisplayName(),
			CampName:      camp.Name,
			Status:        req.Status,
			Notes:         req.ReviewNotes,
			URL:           h.BaseURL + "/applications",
		}))
	}

	respond.OK(w, map[string]any{
		"message":     "Application status updated",
		"application": updated,
	})
}

// admit makes the applicant an active member on the camp's active roster.
// The member count only moves for someone who was not already active.
func (h *Handler) admit(ctx context.Context, tx *txn.Tx, app *models.Application, actor primitive.ObjectID) error {
	prior, err := h.Members.FindByCampUser(ctx, app.Camp, app.Applicant)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	wasActive := err == nil && prior.Status == models.MemberActive
	m, err := h.Members.Activate(ctx, app.Camp, app.Applicant, &app.ID)
	if err != nil {
		return err
	}
	roster, created, err := h.Rosters.EnsureActive(ctx, app.Camp, &actor)
	if err != nil {
		return err
	}
	if created {
		rid := roster.ID
		tx.OnRollback(func(ctx context.Context) error {
			return h.Rosters.Delete(ctx, rid)
		})
	}
	_, err = h.Rosters.AddEntry(ctx, roster.ID, models.RosterEntry{
		Member:     m.ID,
		User:       app.Applicant,
		AddedBy:    &actor,
		DuesStatus: app.DuesStatus,
	})
	if err != nil && !errors.Is(err, rosterstore.ErrAlreadyOnRoster) {
		return err
	}
	if err == nil {
		memberID := m.ID
		tx.OnRollback(func(ctx context.Context) error {
			_, err := h.Rosters.RemoveFromActive(ctx, app.Camp, memberID)
			return err
		})
	}
	if wasActive {
		return nil
	}
	return h.Camps.IncStats(ctx, app.Camp, 1, 0)
}

// demote gives any member record status. A previously approved applicant
// also leaves the active roster and the member count.
func (h *Handler) demote(ctx context.Context, app *models.Application, prev, status, notes string) error {
	m, err := h.Members.FindByCampUser(ctx, app.Camp, app.Applicant)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	wasActive := m.Status == models.MemberActive
	if err := h.Members.SetStatus(ctx, m.ID, status, notes); err != nil {
		return err
	}
	if !wasActive || prev != models.AppApproved {
		return nil
	}
	removed, err := h.Rosters.RemoveFromActive(ctx, app.Camp, m.ID)
	if err != nil {
		return err
	}
	if removed {
		return h.Camps.IncStats(ctx, app.Camp, -1, 0)
	}
	return nil
}

type messageRequest struct {
	Message string `json:"message"`
}

// PostMessage handles POST /api/applications/{id}/message.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid application ID")
		return
	}
	var req messageRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "application message")
		return
	}
	body := htmlsanitize.StripTags(req.Message)
	if body == "" {
		respond.Message(w, http.StatusBadRequest, "Message is required")
		return
	}
	if len(body) > MaxMessageLen {
		respond.Message(w, http.StatusBadRequest, "Message must be at most 2000 characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	app, err := h.Applications.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errAppNotFound, "application message")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "application message: load", err)
		return
	}
	camp, err := h.Camps.GetByID(ctx, app.Camp)
	if err != nil {
		respond.Err(w, h.Log, err, "application message: camp")
		return
	}

	cu, _ := auth.CurrentUser(r)
	sender := cu.ObjectID()
	var from string
	switch {
	case sender == app.Applicant:
		from = models.SenderApplicant
	case authz.CanManageCamp(r, camp):
		from = models.SenderCamp
	default:
		respond.Err(w, h.Log, errNoAccess, "application message")
		return
	}

	updated, err := h.Applications.AddMessage(ctx, app.ID, models.ApplicationMessage{
		From:    from,
		Sender:  sender,
		Message: body,
	})
	if err != nil {
		respond.ServerError(w, h.Log, "application message", err)
		return
	}

	event := map[string]any{"applicationId": app.ID, "from": from, "message": body}
	d := mailer.ApplicationEmailData{CampName: camp.Name}
	if from == models.SenderApplicant {
		h.Notify.Publish(notify.CampRoom(camp.ID.Hex()), notify.EventApplicationMsg, event)
		d.URL = h.BaseURL + "/camp/applications"
		mailer.Deliver(h.Mail, h.Log, mailer.BuildApplicationMessageEmail(camp.ContactEmail, d, cu.Name, body))
	} else {
		h.Notify.Publish(notify.UserRoom(app.Applicant.Hex()), notify.EventApplicationMsg, event)
		if applicant, err := h.Users.GetByID(ctx, app.Applicant); err == nil && applicant.Preferences.EmailNotifications {
			d.URL = h.BaseURL + "/applications"
			mailer.Deliver(h.Mail, h.Log, mailer.BuildApplicationMessageEmail(applicant.Email, d, camp.Name, body))
		}
	}

	respond.OK(w, map[string]any{
		"message":     "Message sent",
		"application": updated,
	})
}

// Reset handles PATCH /api/applications/reset/{applicantId}/{campId}
// (admin). Open applications are withdrawn so the person may apply again.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	applicant, err1 := primitive.ObjectIDFromHex(chi.URLParam(r, "applicantId"))
	camp, err2 := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err1 != nil || err2 != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid applicant or camp ID")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	open, ferr := h.Applications.FindActive(ctx, applicant, camp)
	n, err := h.Applications.WithdrawActive(ctx, applicant, camp, actor)
	if err != nil {
		respond.ServerError(w, h.Log, "reset applications", err)
		return
	}
	if ferr == nil {
		h.releaseSlot(ctx, open.CallSlot, applicant)
	}
	h.Log.Info("applications reset",
		zap.String("applicant_id", applicant.Hex()),
		zap.String("camp_id", camp.Hex()),
		zap.Int64("count", n))
	respond.OK(w, map[string]any{
		"message": "Applications reset",
		"count":   n,
	})
}
