// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task statuses.
const (
	TaskOpen   = "open"
	TaskClosed = "closed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task types. Volunteer shift tasks are generated from events.
const (
	TaskGeneral        = "general"
	TaskVolunteerShift = "volunteer_shift"
)

// TaskMetadata links a generated task back to its event and shift.
type TaskMetadata struct {
	EventID    primitive.ObjectID `bson:"event_id" json:"eventId"`
	ShiftID    primitive.ObjectID `bson:"shift_id" json:"shiftId"`
	EventName  string             `bson:"event_name" json:"eventName"`
	ShiftTitle string             `bson:"shift_title" json:"shiftTitle"`
}

// Task is a camp work item assigned to one or more users.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	TaskCode    string               `bson:"task_code" json:"taskCode"`
	CampID      primitive.ObjectID   `bson:"camp_id" json:"campId"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	AssignedTo  []primitive.ObjectID `bson:"assigned_to" json:"assignedTo"`
	DueDate     *time.Time           `bson:"due_date,omitempty" json:"dueDate,omitempty"`
	Status      string               `bson:"status" json:"status"`
	Priority    string               `bson:"priority" json:"priority"`
	Type        string               `bson:"type,omitempty" json:"type,omitempty"`
	Metadata    *TaskMetadata        `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	CompletedAt *time.Time           `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CompletedBy *primitive.ObjectID  `bson:"completed_by,omitempty" json:"completedBy,omitempty"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
}

// IsAssignedTo reports whether userID is among the assignees.
func (t Task) IsAssignedTo(userID primitive.ObjectID) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}
