// internal/domain/models/callslot.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallSlot is a time a camp offers for an intro call with applicants.
// StartTime and EndTime are "HH:MM" on Date.
type CallSlot struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	CampID              primitive.ObjectID   `bson:"camp_id" json:"campId"`
	Date                time.Time            `bson:"date" json:"date"`
	StartTime           string               `bson:"start_time" json:"startTime"`
	EndTime             string               `bson:"end_time" json:"endTime"`
	IsAvailable         bool                 `bson:"is_available" json:"isAvailable"`
	MaxParticipants     int                  `bson:"max_participants" json:"maxParticipants"`
	CurrentParticipants int                  `bson:"current_participants" json:"currentParticipants"`
	Participants        []primitive.ObjectID `bson:"participants" json:"participants"`
	CreatedAt           time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time            `bson:"updated_at" json:"updatedAt"`
}

// IsFull reports whether no seat is left.
func (s CallSlot) IsFull() bool {
	return s.CurrentParticipants >= s.MaxParticipants
}
