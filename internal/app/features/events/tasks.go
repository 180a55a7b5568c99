package events

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/camphub/internal/app/system/authz"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type targetRequest struct {
	AssignmentType   string   `json:"assignmentType"`
	MemberIDs        []string `json:"memberIds"`
	SendToAllMembers bool     `json:"sendToAllMembers"`
}

// targets resolves who should get the event's tasks. Named members must
// all be active members of camp.
func (h *Handler) targets(ctx context.Context, camp primitive.ObjectID, req targetRequest) ([]primitive.ObjectID, error) {
	active, err := h.Members.ListActive(ctx, camp)
	if err != nil {
		return nil, err
	}
	if req.SendToAllMembers {
		out := make([]primitive.ObjectID, 0, len(active))
		for _, m := range active {
			out = append(out, m.User)
		}
		return out, nil
	}
	if req.MemberIDs == nil {
		return nil, respond.BadRequest("Either memberIds or sendToAllMembers is required")
	}
	isActive := make(map[string]bool, len(active))
	for _, m := range active {
		isActive[m.User.Hex()] = true
	}
	var out []primitive.ObjectID
	valid, invalid := []string{}, []string{}
	for _, s := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil || !isActive[id.Hex()] {
			invalid = append(invalid, s)
			continue
		}
		valid = append(valid, s)
		out = append(out, id)
	}
	if len(invalid) > 0 {
		return nil, respond.BadRequest("Some provided member IDs are not approved camp members").With(map[string]any{
			"invalidMemberIds": invalid,
			"validMemberIds":   valid,
		})
	}
	return out, nil
}

// createTasks gives every user one open volunteer task per shift of ev.
func (h *Handler) createTasks(ctx context.Context, ev *models.Event, users []primitive.ObjectID, by primitive.ObjectID) (int, error) {
	created := 0
	for _, u := range users {
		for _, sh := range ev.Shifts {
			due := sh.Date
			t, err := h.Tasks.Create(ctx, models.Task{
				CampID:      ev.CampID,
				Title:       "Volunteer Shift: " + sh.Title,
				Description: shiftDescription(ev, sh),
				AssignedTo:  []primitive.ObjectID{u},
				DueDate:     &due,
				Priority:    models.PriorityMedium,
				Type:        models.TaskVolunteerShift,
				Metadata: &models.TaskMetadata{
					EventID:    ev.ID,
					ShiftID:    sh.ID,
					EventName:  ev.EventName,
					ShiftTitle: sh.Title,
				},
				CreatedBy: by,
			})
			if err != nil {
				return created, err
			}
			created++
			h.Notify.Publish(notify.UserRoom(u.Hex()), notify.EventTaskAssigned, map[string]any{"task": t})
		}
	}
	return created, nil
}

// SendTasks handles POST /api/shifts/events/{eventId}/send-task.
func (h *Handler) SendTasks(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "send event tasks")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ev, c, err := h.managedEvent(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "send event tasks")
		return
	}
	users, err := h.targets(ctx, c.ID, req)
	if err != nil {
		respond.Err(w, h.Log, err, "send event tasks")
		return
	}
	if len(users) == 0 {
		respond.Fields(w, http.StatusOK, "No approved members found to assign tasks to", map[string]any{
			"tasksCreated": 0, "targetMembers": 0,
		})
		return
	}
	created, err := h.createTasks(ctx, ev, users, actor)
	if err != nil {
		respond.ServerError(w, h.Log, "send event tasks", err, zap.Int("created", created))
		return
	}
	h.Log.Info("event tasks sent", zap.String("event", ev.ID.Hex()), zap.Int("members", len(users)), zap.Int("tasks", created))
	respond.Fields(w, http.StatusOK, fmt.Sprintf("Tasks sent to %d member(s)", len(users)), map[string]any{
		"tasksCreated": created, "targetMembers": len(users),
	})
}

// DeleteTasks handles DELETE /api/shifts/events/{eventId}/tasks.
func (h *Handler) DeleteTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ev, _, err := h.managedEvent(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "delete event tasks")
		return
	}
	n, err := h.Tasks.DeleteForEvent(ctx, ev.ID, nil)
	if err != nil {
		respond.ServerError(w, h.Log, "delete event tasks", err)
		return
	}
	respond.Fields(w, http.StatusOK, fmt.Sprintf("Removed %d task(s) for event", n), map[string]any{"deletedCount": n})
}

// SyncTasks handles PUT /api/shifts/events/{eventId}/task-assignments:
// members no longer targeted lose their tasks for the event, new targets
// get them. assignmentType "none" removes everyone.
func (h *Handler) SyncTasks(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Err(w, h.Log, err, "sync event tasks")
		return
	}
	_, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	ev, c, err := h.managedEvent(ctx, r)
	if err != nil {
		respond.Err(w, h.Log, err, "sync event tasks")
		return
	}
	var want []primitive.ObjectID
	if req.AssignmentType != "none" {
		if want, err = h.targets(ctx, c.ID, req); err != nil {
			respond.Err(w, h.Log, err, "sync event tasks")
			return
		}
	}
	existing, err := h.Tasks.ListForEvent(ctx, ev.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "sync event tasks", err)
		return
	}
	have := map[primitive.ObjectID]bool{}
	for _, t := range existing {
		for _, u := range t.AssignedTo {
			have[u] = true
		}
	}
	wanted := make(map[primitive.ObjectID]bool, len(want))
	var add, remove []primitive.ObjectID
	for _, u := range want {
		wanted[u] = true
		if !have[u] {
			add = append(add, u)
		}
	}
	for u := range have {
		if !wanted[u] {
			remove = append(remove, u)
		}
	}
	if len(add) == 0 && len(remove) == 0 {
		respond.Fields(w, http.StatusOK, "Task assignments already up to date - no changes needed", map[string]any{
			"deletedCount": 0, "createdCount": 0, "finalMemberCount": len(want),
			"membersAdded": 0, "membersRemoved": 0, "noChangesNeeded": true,
		})
		return
	}
	var deleted int64
	if len(remove) > 0 {
		if deleted, err = h.Tasks.DeleteForEvent(ctx, ev.ID, remove); err != nil {
			respond.ServerError(w, h.Log, "sync event tasks: remove", err)
			return
		}
	}
	created, err := h.createTasks(ctx, ev, add, actor)
	if err != nil {
		respond.ServerError(w, h.Log, "sync event tasks: create", err, zap.Int("created", created))
		return
	}
	respond.Fields(w, http.StatusOK,
		fmt.Sprintf("Task assignment updated: removed %d tasks, created %d tasks", deleted, created),
		map[string]any{
			"deletedCount": deleted, "createdCount": created, "finalMemberCount": len(want),
			"membersAdded": len(add), "membersRemoved": len(remove),
		})
}
