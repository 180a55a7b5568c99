// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account types.
const (
	AccountPersonal = "personal"
	AccountCamp     = "camp"
	AccountAdmin    = "admin"
)

// User roles. A freshly registered user is "unassigned" until onboarding.
const (
	RoleUnassigned = "unassigned"
	RoleMember     = "member"
	RoleCampLead   = "camp_lead"
)

// SocialMedia holds optional social profile handles.
type SocialMedia struct {
	Instagram string `bson:"instagram,omitempty" json:"instagram,omitempty" validate:"max=200" label:"Instagram"`
	Facebook  string `bson:"facebook,omitempty" json:"facebook,omitempty" validate:"max=200" label:"Facebook"`
	LinkedIn  string `bson:"linkedin,omitempty" json:"linkedin,omitempty" validate:"max=200" label:"LinkedIn"`
}

// Location is a free-form place.
type Location struct {
	City          string `bson:"city,omitempty" json:"city,omitempty" validate:"max=100" label:"City"`
	State         string `bson:"state,omitempty" json:"state,omitempty" validate:"max=100" label:"State"`
	Country       string `bson:"country,omitempty" json:"country,omitempty" validate:"max=100" label:"Country"`
	PlayaLocation string `bson:"playa_location,omitempty" json:"playaLocation,omitempty" validate:"max=100" label:"Playa location"`
}

// Preferences controls notification delivery.
type Preferences struct {
	EmailNotifications bool `bson:"email_notifications" json:"emailNotifications"`
	SMSNotifications   bool `bson:"sms_notifications" json:"smsNotifications"`
}

// User is a personal, camp, or admin account.
//
// Camp accounts own exactly one camp (CampID). Personal accounts join camps
// through applications and appear on rosters as Members.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`
	AccountType  string             `bson:"account_type" json:"accountType"`
	Role         string             `bson:"role" json:"role"`

	CampID   *primitive.ObjectID `bson:"camp_id,omitempty" json:"campId,omitempty"`
	CampName string              `bson:"camp_name,omitempty" json:"campName,omitempty"`
	URLSlug  string              `bson:"url_slug,omitempty" json:"urlSlug,omitempty"`

	FirstName    string      `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName     string      `bson:"last_name,omitempty" json:"lastName,omitempty"`
	NameCI       string      `bson:"name_ci,omitempty" json:"-"`
	PlayaName    string      `bson:"playa_name,omitempty" json:"playaName,omitempty"`
	PhoneNumber  string      `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	City         string      `bson:"city,omitempty" json:"city,omitempty"`
	YearsBurned  int         `bson:"years_burned" json:"yearsBurned"`
	Bio          string      `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfilePhoto string      `bson:"profile_photo,omitempty" json:"profilePhoto,omitempty"`
	Skills       []string    `bson:"skills,omitempty" json:"skills"`
	Interests    []string    `bson:"interests,omitempty" json:"interests"`
	SocialMedia  SocialMedia `bson:"social_media" json:"socialMedia"`
	Location     Location    `bson:"location" json:"location"`

	HasTicket          bool       `bson:"has_ticket" json:"hasTicket"`
	HasVehiclePass     bool       `bson:"has_vehicle_pass" json:"hasVehiclePass"`
	ArrivalDate        *time.Time `bson:"arrival_date,omitempty" json:"arrivalDate,omitempty"`
	DepartureDate      *time.Time `bson:"departure_date,omitempty" json:"departureDate,omitempty"`
	InterestedInEAP    bool       `bson:"interested_in_eap" json:"interestedInEAP"`
	InterestedInStrike bool       `bson:"interested_in_strike" json:"interestedInStrike"`

	IsActive    bool        `bson:"is_active" json:"isActive"`
	IsVerified  bool        `bson:"is_verified" json:"isVerified"`
	AutoCreated bool        `bson:"auto_created,omitempty" json:"autoCreated,omitempty"`
	LastLogin   *time.Time  `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	Preferences Preferences `bson:"preferences" json:"preferences"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// DisplayName prefers the playa name.
func (u User) DisplayName() string {
	if u.PlayaName != "" {
		return u.PlayaName
	}
	if n := u.FullName(); n != "" {
		return n
	}
	return u.Email
}

// NeedsOnboarding reports whether the user has not yet picked a role. It
// looks only at the role, so an unassigned admin onboards like anyone else.
func (u User) NeedsOnboarding() bool {
	return u.Role == "" || u.Role == RoleUnassigned
}

// MissingProfileFields lists the fields a personal account must fill in
// before it may apply to a camp.
func (u User) MissingProfileFields() []string {
	var missing []string
	if u.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if u.LastName == "" {
		missing = append(missing, "lastName")
	}
	if u.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if u.City == "" && u.Location.City == "" {
		missing = append(missing, "city")
	}
	if u.YearsBurned < 0 {
		missing = append(missing, "yearsBurned")
	}
	if u.Bio == "" {
		missing = append(missing, "bio")
	}
	return missing
}
