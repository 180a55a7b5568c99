package tasks

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/camphub/internal/app/system/inputval"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// createRequest limits match MaxTitleLen and MaxDescriptionLen.
type createRequest struct {
	Title       string   `json:"title" validate:"required,max=200" label:"Title"`
	Description string   `json:"description" validate:"required,max=2000" label:"Description"`
	AssignedTo  []string `json:"assignedTo" validate:"max=100" label:"Assignees"`
	DueDate     string   `json:"dueDate"`
	Priority    string   `json:"priority" validate:"oneof=low medium high" label:"Priority"`
}

func (req *createRequest) validate() inputval.Result {
	req.Title = strings.TrimSpace(htmlsanitize.StripTags(req.Title))
	req.Description = strings.TrimSpace(htmlsanitize.StripTags(req.Description))
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	return inputval.Validate(req)
}

// Create handles POST /api/tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "create task")
		return
	}
	if v := req.validate(); v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respond.Err(w, h.Log, err, "create task")
		return
	}
	assignees, err := parseIDs(req.AssignedTo)
	if err != nil {
		respond.Err(w, h.Log, err, "create task")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	camp, err := h.callerCamp(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "create task")
		return
	}
	if err := h.existingUsers(ctx, assignees); err != nil {
		respond.Err(w, h.Log, err, "create task")
		return
	}
	t, err := h.Tasks.Create(ctx, models.Task{
		CampID:      camp.ID,
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  assignees,
		DueDate:     due,
		Priority:    req.Priority,
		CreatedBy:   actor,
	})
	if err != nil {
		respond.ServerError(w, h.Log, "create task", err)
		return
	}
	h.Log.Info("task created", zap.String("task", t.TaskCode), zap.String("camp", camp.ID.Hex()))
	h.notifyAssigned(ctx, camp, &t, assignees)
	respond.Created(w, map[string]any{"message": "Task created successfully", "task": t})
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"dueDate"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// fields reports whether the request touches anything but status.
func (req updateRequest) fields() bool {
	return req.Title != nil || req.Description != nil || req.DueDate != nil || req.Priority != nil
}

// Update handles PUT /api/tasks/{id}. Camp managers may edit every field;
// assignees may only open or close the task.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.DecodeLenient(r, &req); err != nil {
		respond.Err(w, h.Log, err, "update task")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, camp, err := h.task(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "update task")
		return
	}
	manager := authz.CanManageCamp(r, camp)
	if !manager && !(t.IsAssignedTo(actor) && !req.fields()) {
		respond.Err(w, h.Log, errNoAccess, "update task")
		return
	}

	v := &inputval.Result{}
	set := bson.M{}
	if req.Title != nil {
		s := strings.TrimSpace(htmlsanitize.StripTags(*req.Title))
		v.Required("title", "Title", s).MaxLen("title", "Title", s, MaxTitleLen)
		set["title"] = s
	}
	if req.Description != nil {
		s := strings.TrimSpace(htmlsanitize.StripTags(*req.Description))
		v.Required("description", "Description", s).MaxLen("description", "Description", s, MaxDescriptionLen)
		set["description"] = s
	}
	if req.Priority != nil {
		v.OneOf("priority", "Priority", *req.Priority, models.PriorityLow, models.PriorityMedium, models.PriorityHigh)
		set["priority"] = *req.Priority
	}
	if req.Status != nil {
		v.OneOf("status", "Status", *req.Status, models.TaskOpen, models.TaskClosed)
	}
	if v.HasErrors() {
		respond.Fields(w, http.StatusBadRequest, v.First(), map[string]any{"errors": v.Errors})
		return
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			respond.Err(w, h.Log, err, "update task")
			return
		}
		set["due_date"] = due
	}

	if len(set) > 0 {
		if t, err = h.Tasks.Update(ctx, t.ID, set); err != nil {
			respond.ServerError(w, h.Log, "update task", err)
			return
		}
	}
	if req.Status != nil && *req.Status != t.Status {
		if t, err = h.Tasks.SetStatus(ctx, t.ID, *req.Status, actor); err != nil {
			respond.ServerError(w, h.Log, "update task: status", err)
			return
		}
	}
	respond.OK(w, map[string]any{"message": "Task updated successfully", "task": t})
}

// Delete handles DELETE /api/tasks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, camp, err := h.task(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "delete task")
		return
	}
	if !authz.CanManageCamp(r, camp) {
		respond.Err(w, h.Log, errNoAccess, "delete task")
		return
	}
	if err := h.Tasks.Delete(ctx, t.ID); err != nil {
		respond.Err(w, h.Log, err, "delete task")
		return
	}
	h.Log.Info("task deleted", zap.String("task", t.TaskCode))
	respond.OK(w, map[string]any{"message": "Task deleted successfully"})
}

type assignRequest struct {
	UserIDs []string `json:"userIds" validate:"required,max=100" label:"Users"`
}

// Assign handles POST /api/tasks/{id}/assign. Only users not already on the
// task are notified.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "assign task")
		return
	}
	if v := inputval.Validate(req); v.HasErrors() {
		respond.Message(w, http.StatusBadRequest, v.First())
		return
	}
	ids, err := parseIDs(req.UserIDs)
	if err != nil {
		respond.Err(w, h.Log, err, "assign task")
		return
	}
	if len(ids) == 0 {
		respond.Message(w, http.StatusBadRequest, "At least one user is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, camp, err := h.task(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "assign task")
		return
	}
	if !authz.CanManageCamp(r, camp) {
		respond.Err(w, h.Log, errNoAccess, "assign task")
		return
	}
	if err := h.existingUsers(ctx, ids); err != nil {
		respond.Err(w, h.Log, err, "assign task")
		return
	}
	var added []primitive.ObjectID
	for _, id := range ids {
		if !t.IsAssignedTo(id) {
			added = append(added, id)
		}
	}
	updated, err := h.Tasks.Assign(ctx, t.ID, ids)
	if err != nil {
		respond.ServerError(w, h.Log, "assign task", err)
		return
	}
	h.notifyAssigned(ctx, camp, updated, added)
	respond.OK(w, map[string]any{"message": "Task assigned successfully", "task": updated})
}
