// internal/app/features/invites/handler.go
package invites

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	invitestore "github.com/dalemusser/camphub/internal/app/store/invites"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/metrics"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxRecipients caps one send request.
const MaxRecipients = 50

type Handler struct {
	Invites *invitestore.Store
	Camps   *campstore.Store
	Members *memberstore.Store
	Users   *userstore.Store
	Mail    mailer.Sender
	Metrics *metrics.Metrics
	BaseURL string
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, mail mailer.Sender, m *metrics.Metrics, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Invites: invitestore.New(db),
		Camps:   campstore.New(db),
		Members: memberstore.New(db),
		Users:   userstore.New(db),
		Mail:    mail,
		Metrics: m,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Log:     logger,
	}
}

var (
	errCampNotFound = respond.NotFound("Camp not found")
	errLeadOnly     = respond.Forbidden("Access denied. Camp Lead role required.")
)

// Link is the apply URL carried by an invite.
func (h *Handler) Link(token string) string {
	return h.BaseURL + "/apply?token=" + token
}

// Render fills the campName and link placeholders of tmpl.
func Render(tmpl, campName, link string) string {
	return strings.NewReplacer(
		models.PlaceholderCampName, campName,
		models.PlaceholderLink, link,
	).Replace(tmpl)
}

// managedCamp resolves the {campId} URL param to a camp the caller leads.
func (h *Handler) managedCamp(ctx context.Context, r *http.Request) (*models.Camp, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "campId"))
	if err != nil {
		return nil, respond.BadRequest("Invalid camp ID")
	}
	c, err := h.Camps.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errCampNotFound
	}
	if err != nil {
		return nil, err
	}
	if !authz.CanManageCamp(r, c) {
		return nil, errLeadOnly
	}
	return c, nil
}

// GetTemplate handles GET /api/camps/{campId}/invites/template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	camp, err := h.managedCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "get invite template")
		return
	}
	respond.OK(w, map[string]any{
		"inviteTemplateEmail": camp.EmailTemplate(),
		"inviteTemplateSMS":   camp.SMSTemplate(),
	})
}

type templateRequest struct {
	Email string `json:"inviteTemplateEmail"`
	SMS   string `json:"inviteTemplateSMS"`
}

func (req templateRequest) validate() *inputval.Result {
	v := &inputval.Result{}
	check := func(field, label, tmpl string) {
		if strings.TrimSpace(tmpl) == "" {
			v.Add(field, label+" template is required")
			return
		}
		for _, p := range []string{models.PlaceholderCampName, models.PlaceholderLink} {
			if !strings.Contains(tmpl, p) {
				v.Add(field, fmt.Sprintf("%s template must contain %s placeholder", label, p))
			}
		}
	}
	check("inviteTemplateEmail", "Email", req.Email)
	check("inviteTemplateSMS", "SMS", req.SMS)
	return v
}

// UpdateTemplate handles PUT /api/camps/{campId}/invites/template.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update invite template")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	camp, err := h.managedCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "update invite template")
		return
	}
	updated, err := h.Camps.UpdateAndGet(ctx, camp.ID, bson.M{
		"invite_templates.email": req.Email,
		"invite_templates.sms":   req.SMS,
	})
	if err != nil {
		respond.Err(w, h.Log, err, "update invite template")
		return
	}
	respond.OK(w, map[string]any{
		"message":             "Invite templates updated successfully",
		"inviteTemplateEmail": updated.EmailTemplate(),
		"inviteTemplateSMS":   updated.SMSTemplate(),
	})
}

// sendRequest's recipient limit is MaxRecipients.
type sendRequest struct {
	Recipients []string `json:"recipients" validate:"required,max=50" label:"Recipients"`
	Method     string   `json:"method" validate:"required,oneof=email sms" label:"Method"`
	CampID     string   `json:"campId" validate:"required,objectid" label:"Camp ID"`
}

type sentInvite struct {
	Recipient  string `json:"recipient"`
	Token      string `json:"token"`
	InviteLink string `json:"inviteLink"`
	Status     string `json:"status"`
}

type sendError struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

// Send handles POST /api/invites. Recipients are processed one by one so a
// bad address does not stop the rest of the batch.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "send invites")
		return
	}
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	req.CampID = strings.TrimSpace(req.CampID)
	if v := inputval.Validate(req); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	campID, _ := primitive.ObjectIDFromHex(req.CampID)
	_, sender, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	camp, err := h.Camps.GetByID(ctx, campID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errCampNotFound, "send invites")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "send invites: load camp", err)
		return
	}
	if !authz.CanManageCamp(r, camp) {
		member, err := h.Members.IsActiveMember(ctx, camp.ID, sender)
		if err != nil {
			respond.ServerError(w, h.Log, "send invites: membership", err)
			return
		}
		if !member {
			respond.Message(w, http.StatusForbidden, "Access denied. Must be a camp member or lead to send invites.")
			return
		}
	}

	sent := []sentInvite{}
	failed := []sendError{}
	for _, raw := range req.Recipients {
		recipient := strings.TrimSpace(raw)
		inv, err := h.deliver(ctx, camp, sender, recipient, req.Method)
		if err != nil {
			failed = append(failed, sendError{Recipient: raw, Error: err.Error()})
			continue
		}
		sent = append(sent, sentInvite{
			Recipient:  recipient,
			Token:      inv.Token,
			InviteLink: h.Link(inv.Token),
			Status:     models.InviteSent,
		})
	}

	respond.OK(w, map[string]any{
		"message":     fmt.Sprintf("Successfully sent %d invites", len(sent)),
		"invitesSent": sent,
		"errors":      failed,
		"summary": map[string]int{
			"total":  len(req.Recipients),
			"sent":   len(sent),
			"failed": len(failed),
		},
	})
}

// deliver creates one invite and sends it. SMS has no provider; the
// rendered text is logged instead.
func (h *Handler) deliver(ctx context.Context, camp *models.Camp, sender primitive.ObjectID, recipient, method string) (models.Invite, error) {
	if recipient == "" {
		return models.Invite{}, errors.New("recipient cannot be empty")
	}
	if method == models.InviteEmail && !inputval.IsValidEmail(recipient) {
		return models.Invite{}, errors.New("invalid email address")
	}
	inv, err := h.Invites.Create(ctx, camp.ID, sender, recipient, method)
	if err != nil {
		h.Log.Error("invite create failed", zap.Error(err), zap.String("camp_id", camp.ID.Hex()))
		return models.Invite{}, errors.New("could not create invite")
	}
	link := h.Link(inv.Token)

	if method == models.InviteEmail {
		body := Render(camp.EmailTemplate(), camp.Name, link)
		if err := h.sendEmail(ctx, mailer.BuildInviteEmail(inv.Recipient, camp.Name, body, link)); err != nil {
			h.Log.Warn("invite email failed", zap.Error(err), zap.String("invite_id", inv.ID.Hex()))
			return models.Invite{}, errors.New("could not send email")
		}
	} else {
		h.Log.Info("sms invite",
			zap.String("invite_id", inv.ID.Hex()),
			zap.String("recipient", inv.Recipient),
			zap.String("message", Render(camp.SMSTemplate(), camp.Name, link)))
	}

	if err := h.Invites.MarkSent(ctx, inv.ID); err != nil {
		h.Log.Warn("failed to mark invite sent", zap.Error(err), zap.String("invite_id", inv.ID.Hex()))
	}
	h.Metrics.InviteSent(method)
	return inv, nil
}

func (h *Handler) sendEmail(ctx context.Context, e mailer.Email) error {
	if h.Mail == nil {
		return nil
	}
	return h.Mail.Send(ctx, e)
}

type senderInfo struct {
	ID        primitive.ObjectID `json:"_id"`
	FirstName string             `json:"firstName"`
	LastName  string             `json:"lastName"`
	Email     string             `json:"email"`
}

// List handles GET /api/camps/{campId}/invites?status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" {
		v := (&inputval.Result{}).OneOf("status", "Status", status,
			models.InvitePending, models.InviteSent, models.InviteApplied, models.InviteExpired)
		if v.HasErrors() {
			respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	camp, err := h.managedCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "list invites")
		return
	}
	invites, err := h.Invites.ListByCamp(ctx, camp.ID, status)
	if err != nil {
		respond.ServerError(w, h.Log, "list invites", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(invites))
	for _, inv := range invites {
		ids = append(ids, inv.SenderID)
	}
	senders, err := h.Users.FindByIDs(ctx, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "list invites: senders", err)
		return
	}

	out := make([]map[string]any, 0, len(invites))
	for _, inv := range invites {
		row := map[string]any{"invite": inv, "sender": nil}
		if u, ok := senders[inv.SenderID]; ok {
			row["sender"] = senderInfo{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
		}
		out = append(out, row)
	}
	respond.OK(w, map[string]any{"invites": out, "total": len(out)})
}

// Validate handles GET /api/invites/validate/{token}. It is public so the
// apply page can show the camp before the visitor signs in.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Invites.GetByToken(ctx, token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Message(w, http.StatusNotFound, "Invite not found")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "validate invite", err)
		return
	}
	if inv.Expired(time.Now().UTC()) {
		respond.Fields(w, http.StatusGone, "This invite has expired", map[string]any{"valid": false})
		return
	}
	camp, err := h.Camps.GetByID(ctx, inv.CampID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errCampNotFound, "validate invite")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "validate invite: camp", err)
		return
	}
	respond.OK(w, map[string]any{
		"valid":    true,
		"status":   inv.Status,
		"campId":   camp.ID,
		"campName": camp.Name,
		"campSlug": camp.Slug,
	})
}
