// internal/app/features/help/handler.go
package help

import (
	"context"
	"errors"
	"net/http"
	"strings"

	faqstore "github.com/dalemusser/camphub/internal/app/store/faqs"
	ticketstore "github.com/dalemusser/camphub/internal/app/store/tickets"
	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxQuestionLen = 500
	MaxAnswerLen   = 5000
)

type Handler struct {
	FAQs         *faqstore.Store
	Tickets      *ticketstore.Store
	Mail         mailer.Sender
	SupportEmail string
	Limiter      *ratelimit.Limiter
	Log          *zap.Logger
}

// NewHandler wires the help center. limiter guards the contact form and
// may be nil.
func NewHandler(db *mongo.Database, mail mailer.Sender, supportEmail string, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		FAQs:         faqstore.New(db),
		Tickets:      ticketstore.New(db),
		Mail:         mail,
		SupportEmail: supportEmail,
		Limiter:      limiter,
		Log:          logger,
	}
}

var errFAQNotFound = respond.NotFound("FAQ not found")

// ListFAQs handles GET /api/help/faqs?audience=&category=.
func (h *Handler) ListFAQs(w http.ResponseWriter, r *http.Request) {
	audience := r.URL.Query().Get("audience")
	if audience != "" && !models.IsFAQAudience(audience) {
		respond.Message(w, http.StatusBadRequest, "Invalid audience")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	faqs, err := h.FAQs.ListActive(ctx, audience, r.URL.Query().Get("category"))
	if err != nil {
		respond.ServerError(w, h.Log, "list faqs", err)
		return
	}
	respond.OK(w, map[string]any{"faqs": faqs, "categories": models.FAQCategories})
}

// AdminListFAQs handles GET /api/admin/faqs, including inactive entries.
func (h *Handler) AdminListFAQs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	faqs, err := h.FAQs.ListAll(ctx)
	if err != nil {
		respond.ServerError(w, h.Log, "admin list faqs", err)
		return
	}
	respond.OK(w, map[string]any{"faqs": faqs, "total": len(faqs)})
}

type faqRequest struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
	Category *string `json:"category"`
	Order    *int    `json:"order"`
	IsActive *bool   `json:"isActive"`
	Audience *string `json:"audience"`
}

// validate checks the fields present. full requires question, answer and
// category.
func (req *faqRequest) validate(full bool) *inputval.Result {
	v := &inputval.Result{}
	text := func(field, label string, p *string, max int) {
		if p == nil {
			if full {
				v.Add(field, label+" is required.")
			}
			return
		}
		*p = strings.TrimSpace(*p)
		v.Required(field, label, *p).MaxLen(field, label, *p, max)
	}
	text("question", "Question", req.Question, MaxQuestionLen)
	text("answer", "Answer", req.Answer, MaxAnswerLen)
	if req.Category == nil {
		if full {
			v.Add("category", "Category is required.")
		}
	} else {
		v.OneOf("category", "Category", *req.Category, models.FAQCategories...)
	}
	if req.Audience != nil {
		v.OneOf("audience", "Audience", *req.Audience, models.AudienceBoth, models.AudienceCamps, models.AudienceMembers)
	}
	if req.Order != nil && *req.Order < 1 {
		v.Add("order", "Order must be at least 1.")
	}
	return v
}

// CreateFAQ handles POST /api/admin/faqs.
func (h *Handler) CreateFAQ(w http.ResponseWriter, r *http.Request) {
	var req faqRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "create faq")
		return
	}
	if v := req.validate(true); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	_, actor, _ := authz.UserCtx(r)
	f := models.FAQ{
		Question:  *req.Question,
		Answer:    *req.Answer,
		Category:  *req.Category,
		IsActive:  true,
		CreatedBy: &actor,
		UpdatedBy: &actor,
	}
	if req.Order != nil {
		f.Order = *req.Order
	}
	if req.IsActive != nil {
		f.IsActive = *req.IsActive
	}
	if req.Audience != nil {
		f.Audience = *req.Audience
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.FAQs.Create(ctx, f)
	if err != nil {
		respond.ServerError(w, h.Log, "create faq", err)
		return
	}
	respond.Created(w, map[string]any{"message": "FAQ created successfully", "faq": created})
}

// UpdateFAQ handles PUT /api/admin/faqs/{id}.
func (h *Handler) UpdateFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid FAQ ID")
		return
	}
	var req faqRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update faq")
		return
	}
	if v := req.validate(false); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	_, actor, _ := authz.UserCtx(r)
	set := bson.M{"updated_by": actor}
	if req.Question != nil {
		set["question"] = *req.Question
	}
	if req.Answer != nil {
		set["answer"] = *req.Answer
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	if req.Order != nil {
		set["order"] = *req.Order
	}
	if req.IsActive != nil {
		set["is_active"] = *req.IsActive
	}
	if req.Audience != nil {
		set["audience"] = *req.Audience
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	f, err := h.FAQs.Update(ctx, id, set)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respond.Err(w, h.Log, errFAQNotFound, "update faq")
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "update faq", err)
		return
	}
	respond.OK(w, map[string]any{"message": "FAQ updated successfully", "faq": f})
}

// DeleteFAQ handles DELETE /api/admin/faqs/{id}.
func (h *Handler) DeleteFAQ(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Message(w, http.StatusBadRequest, "Invalid FAQ ID")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.FAQs.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = errFAQNotFound
		}
		respond.Err(w, h.Log, err, "delete faq")
		return
	}
	respond.OK(w, map[string]any{"message": "FAQ deleted successfully"})
}
