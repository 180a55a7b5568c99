package help

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.uber.org/zap"
)

const MaxMessageLen = 5000

// contactRequest's message limit is MaxMessageLen.
type contactRequest struct {
	Name     string `json:"name" validate:"required,max=100" label:"Name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Subject  string `json:"subject" validate:"required,max=200" label:"Subject"`
	Message  string `json:"message" validate:"required,max=5000" label:"Message"`
	Category string `json:"category" validate:"required,max=100" label:"Category"`
}

func (req *contactRequest) validate() inputval.Result {
	req.Name = strings.TrimSpace(htmlsanitize.StripTags(req.Name))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Subject = strings.TrimSpace(htmlsanitize.StripTags(req.Subject))
	req.Message = strings.TrimSpace(htmlsanitize.StripTags(req.Message))
	req.Category = strings.TrimSpace(req.Category)
	return inputval.Validate(req)
}

// Contact handles POST /api/help/contact. It is public; a signed-in
// sender is linked to the ticket.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		respond.Message(w, http.StatusTooManyRequests, "Too many messages. Please try again later.")
		return
	}
	var req contactRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "contact")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	t := models.SupportTicket{
		Name:     req.Name,
		Email:    req.Email,
		Subject:  req.Subject,
		Message:  req.Message,
		Category: req.Category,
	}
	if _, uid, ok := authz.UserCtx(r); ok {
		t.UserID = &uid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tickets.Create(ctx, t)
	if err != nil {
		respond.ServerError(w, h.Log, "contact: store ticket", err)
		return
	}
	h.Log.Info("support ticket created",
		zap.String("ticket", t.TicketID),
		zap.String("category", t.Category),
		zap.String("ip", ratelimit.ClientIP(r)))

	mailer.Deliver(h.Mail, h.Log, mailer.BuildContactEmail(h.SupportEmail, mailer.ContactEmailData{
		TicketID: t.TicketID,
		Name:     t.Name,
		Email:    t.Email,
		Category: t.Category,
		Subject:  t.Subject,
		Message:  t.Message,
	}))
	respond.OK(w, map[string]any{
		"message":  "Thank you for your message. We'll get back to you within 24 hours.",
		"ticketId": t.TicketID,
	})
}

// SupportMessages handles GET /api/help/support-messages. Admins see every
// ticket (optionally ?status=); others see their own.
func (h *Handler) SupportMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var (
		list []models.SupportTicket
		err  error
	)
	if authz.IsAdmin(r) {
		list, err = h.Tickets.List(ctx, r.URL.Query().Get("status"), 200)
	} else {
		cu, _ := auth.CurrentUser(r)
		list, err = h.Tickets.ListForUser(ctx, cu.ObjectID(), cu.Email, 50)
	}
	if err != nil {
		respond.ServerError(w, h.Log, "support messages", err)
		return
	}
	respond.OK(w, map[string]any{"messages": list, "total": len(list)})
}
