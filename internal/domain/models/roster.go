// internal/domain/models/roster.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterOverrides replace profile values on the roster and in exports.
type RosterOverrides struct {
	PlayaName   *string  `bson:"playa_name,omitempty" json:"playaName,omitempty"`
	YearsBurned *int     `bson:"years_burned,omitempty" json:"yearsBurned,omitempty"`
	Skills      []string `bson:"skills,omitempty" json:"skills,omitempty"`
}

// RosterEntry is one member's line on a roster.
type RosterEntry struct {
	Member     primitive.ObjectID  `bson:"member" json:"member"`
	User       primitive.ObjectID  `bson:"user" json:"user"`
	AddedAt    time.Time           `bson:"added_at" json:"addedAt"`
	AddedBy    *primitive.ObjectID `bson:"added_by,omitempty" json:"addedBy,omitempty"`
	DuesStatus string              `bson:"dues_status" json:"duesStatus"`
	Overrides  RosterOverrides     `bson:"overrides" json:"overrides"`
}

// Roster is a named list of a camp's members for a season. At most one
// roster per camp is active.
type Roster struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Camp        primitive.ObjectID  `bson:"camp" json:"camp"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	IsActive    bool                `bson:"is_active" json:"isActive"`
	IsArchived  bool                `bson:"is_archived" json:"isArchived"`
	Members     []RosterEntry       `bson:"members" json:"members"`
	CreatedBy   *primitive.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	ArchivedAt  *time.Time          `bson:"archived_at,omitempty" json:"archivedAt,omitempty"`
	ArchivedBy  *primitive.ObjectID `bson:"archived_by,omitempty" json:"archivedBy,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
}

// Entry returns the roster line for memberID.
func (r Roster) Entry(memberID primitive.ObjectID) (RosterEntry, bool) {
	for _, e := range r.Members {
		if e.Member == memberID {
			return e, true
		}
	}
	return RosterEntry{}, false
}

// HasUser reports whether userID already has a line on the roster.
func (r Roster) HasUser(userID primitive.ObjectID) bool {
	for _, e := range r.Members {
		if e.User == userID {
			return true
		}
	}
	return false
}
