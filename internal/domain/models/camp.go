// internal/domain/models/camp.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Camp statuses.
const (
	CampActive    = "active"
	CampInactive  = "inactive"
	CampSuspended = "suspended"
	CampArchived  = "archived"
)

// Camp sizes.
const (
	CampSizeSmall  = "small"
	CampSizeMedium = "medium"
	CampSizeLarge  = "large"
	CampSizeMega   = "mega"
)

// Placeholders every invite template must contain.
const (
	PlaceholderCampName = "{{campName}}"
	PlaceholderLink     = "{{link}}"
)

// Default invite templates.
const (
	DefaultInviteEmailTemplate = "Hello! You've been personally invited to apply to join our camp, {{campName}}, for Burning Man. Click here to start your application: {{link}}"
	DefaultInviteSMSTemplate   = "You're invited to {{campName}}! Apply here: {{link}}"
)

// Photo is a camp gallery image.
type Photo struct {
	URL       string `bson:"url" json:"url"`
	Caption   string `bson:"caption" json:"caption"`
	IsPrimary bool   `bson:"is_primary" json:"isPrimary"`
}

// Offerings are the amenities a camp provides to members.
type Offerings struct {
	Water          bool `bson:"water" json:"water"`
	Power          bool `bson:"power" json:"power"`
	Shade          bool `bson:"shade" json:"shade"`
	Showers        bool `bson:"showers" json:"showers"`
	Kitchen        bool `bson:"kitchen" json:"kitchen"`
	Food           bool `bson:"food" json:"food"`
	Internet       bool `bson:"internet" json:"internet"`
	Transportation bool `bson:"transportation" json:"transportation"`
}

// Dues describes the per-member camp fee.
type Dues struct {
	Amount      float64 `bson:"amount" json:"amount"`
	Currency    string  `bson:"currency,omitempty" json:"currency,omitempty"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
}

// Requirements are the conditions for joining.
type Requirements struct {
	MinAge int  `bson:"min_age" json:"minAge"`
	Dues   Dues `bson:"dues" json:"dues"`
}

// CampStats are denormalised counters kept on the camp document.
type CampStats struct {
	TotalMembers      int     `bson:"total_members" json:"totalMembers"`
	TotalApplications int     `bson:"total_applications" json:"totalApplications"`
	AcceptanceRate    float64 `bson:"acceptance_rate" json:"acceptanceRate"`
}

// InviteTemplates are the per-camp invite message bodies.
type InviteTemplates struct {
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	SMS   string `bson:"sms,omitempty" json:"sms,omitempty"`
}

// Camp is a theme camp profile.
type Camp struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Owner       *primitive.ObjectID `bson:"owner,omitempty" json:"owner,omitempty"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	Slug        string              `bson:"slug" json:"slug"`
	Description string              `bson:"description" json:"description"`
	Bio         string              `bson:"bio,omitempty" json:"bio,omitempty"`
	Theme       string              `bson:"theme,omitempty" json:"theme,omitempty"`
	YearFounded int                 `bson:"year_founded,omitempty" json:"yearFounded,omitempty"`
	CampSize    string              `bson:"camp_size,omitempty" json:"campSize,omitempty"`
	MaxMembers  int                 `bson:"max_members" json:"maxMembers"`
	Location    Location            `bson:"location" json:"location"`

	Photos            []Photo `bson:"photos" json:"photos"`
	PrimaryPhotoIndex int     `bson:"primary_photo_index" json:"primaryPhotoIndex"`

	ContactEmail string               `bson:"contact_email,omitempty" json:"contactEmail,omitempty"`
	ContactPhone string               `bson:"contact_phone,omitempty" json:"contactPhone,omitempty"`
	Website      string               `bson:"website,omitempty" json:"website,omitempty"`
	SocialMedia  SocialMedia          `bson:"social_media" json:"socialMedia"`
	Categories   []primitive.ObjectID `bson:"categories,omitempty" json:"categories"`
	Offerings    Offerings            `bson:"offerings" json:"offerings"`
	Requirements Requirements         `bson:"requirements" json:"requirements"`

	Status              string `bson:"status" json:"status"`
	IsRecruiting        bool   `bson:"is_recruiting" json:"isRecruiting"`
	IsPublic            bool   `bson:"is_public" json:"isPublic"`
	AcceptingNewMembers bool   `bson:"accepting_new_members" json:"acceptingNewMembers"`
	ShowApplyNow        bool   `bson:"show_apply_now" json:"showApplyNow"`
	ShowMemberCount     bool   `bson:"show_member_count" json:"showMemberCount"`

	Stats           CampStats       `bson:"stats" json:"stats"`
	InviteTemplates InviteTemplates `bson:"invite_templates" json:"inviteTemplates"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewCamp returns a camp populated with the defaults every new camp gets.
func NewCamp(name, slug string, now time.Time) Camp {
	return Camp{
		ID:                  primitive.NewObjectID(),
		Name:                name,
		Slug:                slug,
		Description:         "Welcome to " + name + "! We're excited to share our camp experience with you.",
		MaxMembers:          50,
		Location:            Location{Country: "USA"},
		Photos:              []Photo{},
		Requirements:        Requirements{MinAge: 18, Dues: Dues{Currency: "USD"}},
		Status:              CampActive,
		IsRecruiting:        true,
		AcceptingNewMembers: true,
		ShowApplyNow:        true,
		ShowMemberCount:     true,
		InviteTemplates: InviteTemplates{
			Email: DefaultInviteEmailTemplate,
			SMS:   DefaultInviteSMSTemplate,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PhotoURLs flattens the gallery to URLs, the shape the public list returns.
func (c Camp) PhotoURLs() []string {
	urls := make([]string, 0, len(c.Photos))
	for _, p := range c.Photos {
		if p.URL != "" {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// ClampedPrimaryPhotoIndex returns PrimaryPhotoIndex bounded to the gallery.
func (c Camp) ClampedPrimaryPhotoIndex() int {
	n := len(c.Photos)
	if n == 0 || c.PrimaryPhotoIndex < 0 {
		return 0
	}
	if c.PrimaryPhotoIndex >= n {
		return n - 1
	}
	return c.PrimaryPhotoIndex
}

// EmailTemplate returns the camp's invite email template or the default.
func (c Camp) EmailTemplate() string {
	if c.InviteTemplates.Email != "" {
		return c.InviteTemplates.Email
	}
	return DefaultInviteEmailTemplate
}

// SMSTemplate returns the camp's invite SMS template or the default.
func (c Camp) SMSTemplate() string {
	if c.InviteTemplates.SMS != "" {
		return c.InviteTemplates.SMS
	}
	return DefaultInviteSMSTemplate
}
