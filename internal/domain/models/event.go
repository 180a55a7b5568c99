// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event and shift statuses.
const (
	EventActive    = "active"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// EventStatuses lists every valid event or shift status.
var EventStatuses = []string{EventActive, EventCancelled, EventCompleted}

// Shift is one volunteer slot of an event. MemberIDs are the users signed
// up, at most MaxSignUps of them.
type Shift struct {
	ID          primitive.ObjectID   `bson:"_id" json:"_id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Date        time.Time            `bson:"date" json:"date"`
	StartTime   time.Time            `bson:"start_time" json:"startTime"`
	EndTime     time.Time            `bson:"end_time" json:"endTime"`
	MaxSignUps  int                  `bson:"max_sign_ups" json:"maxSignUps"`
	MemberIDs   []primitive.ObjectID `bson:"member_ids" json:"memberIds"`
	Status      string               `bson:"status" json:"status"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
}

// IsFull reports whether every seat is taken.
func (s Shift) IsFull() bool { return len(s.MemberIDs) >= s.MaxSignUps }

// HasMember reports whether user signed up.
func (s Shift) HasMember(user primitive.ObjectID) bool {
	for _, id := range s.MemberIDs {
		if id == user {
			return true
		}
	}
	return false
}

// TimeRange formats the shift as "15:04-17:00".
func (s Shift) TimeRange() string {
	return s.StartTime.Format("15:04") + "-" + s.EndTime.Format("15:04")
}

// Event groups the shifts a camp needs volunteers for.
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CampID      primitive.ObjectID `bson:"camp_id" json:"campId"`
	EventName   string             `bson:"event_name" json:"eventName"`
	Description string             `bson:"description" json:"description"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`
	Shifts      []Shift            `bson:"shifts" json:"shifts"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Shift returns the shift with id.
func (e Event) Shift(id primitive.ObjectID) (Shift, bool) {
	for _, s := range e.Shifts {
		if s.ID == id {
			return s, true
		}
	}
	return Shift{}, false
}
