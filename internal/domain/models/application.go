// internal/domain/models/application.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application statuses.
const (
	AppPending            = "pending"
	AppCallScheduled      = "call-scheduled"
	AppPendingOrientation = "pending-orientation"
	AppUnderReview        = "under-review"
	AppApproved           = "approved"
	AppRejected           = "rejected"
	AppUnresponsive       = "unresponsive"
	AppWithdrawn          = "withdrawn"
	AppDeleted            = "deleted"
)

// ApplicationStatuses lists every valid application status.
var ApplicationStatuses = []string{
	AppPending, AppCallScheduled, AppPendingOrientation, AppUnderReview,
	AppApproved, AppRejected, AppUnresponsive, AppWithdrawn, AppDeleted,
}

// TerminalApplicationStatuses no longer block a new application to the same camp.
var TerminalApplicationStatuses = []string{AppDeleted, AppWithdrawn, AppRejected}

// IsValidApplicationStatus reports whether s is a known status.
func IsValidApplicationStatus(s string) bool {
	for _, v := range ApplicationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminalApplicationStatus reports whether s is terminal.
func IsTerminalApplicationStatus(s string) bool {
	for _, v := range TerminalApplicationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Dues statuses.
const (
	DuesUnpaid = "Unpaid"
	DuesPaid   = "Paid"
)

// Message senders.
const (
	SenderApplicant = "applicant"
	SenderCamp      = "camp"
)

// EmergencyContact is supplied with an application.
type EmergencyContact struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty" validate:"max=100" label:"Emergency contact name"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty" validate:"max=40" label:"Emergency contact phone"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty" validate:"max=100" label:"Emergency contact relationship"`
}

// Availability is when the applicant will be on playa.
type Availability struct {
	ArriveDate *time.Time `bson:"arrive_date,omitempty" json:"arriveDate,omitempty"`
	DepartDate *time.Time `bson:"depart_date,omitempty" json:"departDate,omitempty"`
	WorkShifts string     `bson:"work_shifts,omitempty" json:"workShifts,omitempty" validate:"max=500" label:"Work shifts"`
}

// ApplicationData is the applicant's answers.
type ApplicationData struct {
	Motivation       string           `bson:"motivation" json:"motivation" validate:"required,min=10,max=1000" label:"Motivation"`
	Experience       string           `bson:"experience,omitempty" json:"experience,omitempty" validate:"max=1000" label:"Experience"`
	Skills           []string         `bson:"skills,omitempty" json:"skills"`
	Availability     Availability     `bson:"availability" json:"availability"`
	EmergencyContact EmergencyContact `bson:"emergency_contact" json:"emergencyContact"`
}

// ApplicationMessage is one entry of the applicant/camp thread.
type ApplicationMessage struct {
	From      string             `bson:"from" json:"from"`
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	Message   string             `bson:"message" json:"message"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// ActionHistoryEntry records a status transition.
type ActionHistoryEntry struct {
	Action      string             `bson:"action" json:"action"`
	FromStatus  string             `bson:"from_status,omitempty" json:"fromStatus,omitempty"`
	ToStatus    string             `bson:"to_status,omitempty" json:"toStatus,omitempty"`
	PerformedBy primitive.ObjectID `bson:"performed_by" json:"performedBy"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}

// Application is a MemberApplication: a personal account asking to join a camp.
type Application struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Applicant       primitive.ObjectID   `bson:"applicant" json:"applicant"`
	Camp            primitive.ObjectID   `bson:"camp" json:"camp"`
	ApplicationData ApplicationData      `bson:"application_data" json:"applicationData"`
	Status          string               `bson:"status" json:"status"`
	ReviewedBy      *primitive.ObjectID  `bson:"reviewed_by,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time           `bson:"reviewed_at,omitempty" json:"reviewedAt,omitempty"`
	ReviewNotes     string               `bson:"review_notes,omitempty" json:"reviewNotes,omitempty"`
	DuesStatus      string               `bson:"dues_status" json:"duesStatus"`
	InviteToken     string               `bson:"invite_token,omitempty" json:"-"`
	CallSlot        *primitive.ObjectID  `bson:"call_slot,omitempty" json:"selectedCallSlotId,omitempty"`
	AppliedAt       time.Time            `bson:"applied_at" json:"appliedAt"`
	Messages        []ApplicationMessage `bson:"messages" json:"messages"`
	ActionHistory   []ActionHistoryEntry `bson:"action_history" json:"actionHistory"`
	CreatedAt       time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updatedAt"`
}
