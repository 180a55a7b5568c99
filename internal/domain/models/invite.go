// internal/domain/models/invite.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invite delivery methods.
const (
	InviteEmail = "email"
	InviteSMS   = "sms"
)

// Invite statuses.
const (
	InvitePending = "pending"
	InviteSent    = "sent"
	InviteApplied = "applied"
	InviteExpired = "expired"
)

// InviteTTL is how long an invite link stays valid.
const InviteTTL = 7 * 24 * time.Hour

// Invite is a personal invitation to apply to a camp.
type Invite struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CampID    primitive.ObjectID `bson:"camp_id" json:"campId"`
	SenderID  primitive.ObjectID `bson:"sender_id" json:"senderId"`
	Recipient string             `bson:"recipient" json:"recipient"`
	Method    string             `bson:"method" json:"method"`
	Status    string             `bson:"status" json:"status"`
	Token     string             `bson:"token" json:"-"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expiresAt"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Expired reports whether the invite is past its expiry at now.
func (i Invite) Expired(now time.Time) bool {
	return i.Status == InviteExpired || !now.Before(i.ExpiresAt)
}
