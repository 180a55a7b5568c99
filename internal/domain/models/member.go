// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member roles within a camp.
const (
	MemberRoleMember      = "member"
	MemberRoleProjectLead = "project-lead"
	MemberRoleCampLead    = "camp-lead"
)

// Member statuses.
const (
	MemberPending   = "pending"
	MemberActive    = "active"
	MemberInactive  = "inactive"
	MemberSuspended = "suspended"
	MemberRejected  = "rejected"
)

// Member links a user to a camp once an application is approved.
type Member struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Camp        primitive.ObjectID  `bson:"camp" json:"camp"`
	User        primitive.ObjectID  `bson:"user" json:"user"`
	Role        string              `bson:"role" json:"role"`
	Status      string              `bson:"status" json:"status"`
	Application *primitive.ObjectID `bson:"application,omitempty" json:"application,omitempty"`
	JoinedAt    *time.Time          `bson:"joined_at,omitempty" json:"joinedAt,omitempty"`
	ReviewNotes string              `bson:"review_notes,omitempty" json:"reviewNotes,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
}
