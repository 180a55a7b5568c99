// internal/domain/models/activitylog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entity types for activity logs.
const (
	EntityMember = "MEMBER"
	EntityCamp   = "CAMP"
	EntitySystem = "SYSTEM"
)

// Activity types recorded by the application.
const (
	ActivityRoleSelected        = "ROLE_SELECTED"
	ActivityApplicationSubmit   = "APPLICATION_SUBMITTED"
	ActivityApplicationStatus   = "APPLICATION_STATUS_CHANGE"
	ActivityDuesToggle          = "DUES_TOGGLE"
	ActivityRosterCreated       = "ROSTER_CREATED"
	ActivityRosterArchived      = "ROSTER_ARCHIVED"
	ActivityMemberAdded         = "MEMBER_ADDED"
	ActivityMemberRemoved       = "MEMBER_REMOVED"
	ActivityOwnerRestored       = "CAMP_OWNER_RESTORED"
	ActivityCampStatus          = "CAMP_STATUS_CHANGE"
	ActivityUserStatus          = "USER_STATUS_CHANGE"
	ActivityAdminAccountDeleted = "ADMIN_ACCOUNT_DELETION"
	ActivityLogin               = "LOGIN"
	ActivityLoginFailed         = "LOGIN_FAILED"
	ActivityPasswordChanged     = "PASSWORD_CHANGED"
	ActivityPasswordReset       = "PASSWORD_RESET"
	ActivityRegistered          = "REGISTERED"
)

// ActivityLog is an append-only record of something that happened to an
// entity. Details is free-form.
type ActivityLog struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	EntityType   string              `bson:"entity_type" json:"entityType"`
	EntityID     *primitive.ObjectID `bson:"entity_id,omitempty" json:"entityId,omitempty"`
	ActingUserID *primitive.ObjectID `bson:"acting_user_id,omitempty" json:"actingUserId,omitempty"`
	ActivityType string              `bson:"activity_type" json:"activityType"`
	Details      map[string]any      `bson:"details,omitempty" json:"details,omitempty"`
	Timestamp    time.Time           `bson:"timestamp" json:"timestamp"`
}
