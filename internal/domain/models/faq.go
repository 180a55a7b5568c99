// internal/domain/models/faq.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FAQ audiences.
const (
	AudienceBoth    = "both"
	AudienceCamps   = "camps"
	AudienceMembers = "members"
)

// FAQCategories are the fixed FAQ groupings, in display order.
var FAQCategories = []string{
	"General",
	"Account Management",
	"Camp Management",
	"Applications",
	"Tasks",
	"Members",
	"Technical Support",
	"Billing",
}

// IsFAQCategory reports whether c is one of FAQCategories.
func IsFAQCategory(c string) bool {
	for _, v := range FAQCategories {
		if v == c {
			return true
		}
	}
	return false
}

// IsFAQAudience reports whether a is a valid audience.
func IsFAQAudience(a string) bool {
	return a == AudienceBoth || a == AudienceCamps || a == AudienceMembers
}

type FAQ struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Question  string              `bson:"question" json:"question"`
	Answer    string              `bson:"answer" json:"answer"`
	Category  string              `bson:"category" json:"category"`
	Order     int                 `bson:"order" json:"order"`
	IsActive  bool                `bson:"is_active" json:"isActive"`
	Audience  string              `bson:"audience" json:"audience"`
	CreatedBy *primitive.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	UpdatedBy *primitive.ObjectID `bson:"updated_by,omitempty" json:"updatedBy,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updatedAt"`
}
