// internal/app/maintenance/maintenance.go
//
// Package maintenance holds the data repair and migration operations that
// run at startup, from camphubctl, and behind the admin deletion and
// diagnostic endpoints. Every operation is idempotent and returns a summary
// of what it changed.
package maintenance

import (
	"errors"
	"time"

	activitystore "github.com/dalemusser/camphub/internal/app/store/activity"
	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	callslotstore "github.com/dalemusser/camphub/internal/app/store/callslots"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	eventstore "github.com/dalemusser/camphub/internal/app/store/events"
	invitestore "github.com/dalemusser/camphub/internal/app/store/invites"
	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	"github.com/dalemusser/camphub/internal/app/store/passwordreset"
	rosterstore "github.com/dalemusser/camphub/internal/app/store/rosters"
	taskstore "github.com/dalemusser/camphub/internal/app/store/tasks"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrAccountNotFound is returned when no user or camp matches a search term.
	ErrAccountNotFound = errors.New("no account matches")
	// ErrUserNotFound is returned by ResetPassword for an unknown email.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoContactEmail means a camp has no owner and nothing to find one by.
	ErrNoContactEmail = errors.New("camp has no contact email")
)

// Service runs maintenance operations against one database.
type Service struct {
	DB           *mongo.Database
	Users        *userstore.Store
	Camps        *campstore.Store
	Applications *applicationstore.Store
	Members      *memberstore.Store
	Rosters      *rosterstore.Store
	Invites      *invitestore.Store
	Tasks        *taskstore.Store
	Events       *eventstore.Store
	CallSlots    *callslotstore.Store
	Activity     *activitystore.Store
	Resets       *passwordreset.Store
	Audit        *auditlog.Logger
	Log          *zap.Logger

	now func() time.Time
}

func New(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		DB:           db,
		Users:        userstore.New(db),
		Camps:        campstore.New(db),
		Applications: applicationstore.New(db),
		Members:      memberstore.New(db),
		Rosters:      rosterstore.New(db),
		Invites:      invitestore.New(db),
		Tasks:        taskstore.New(db),
		Events:       eventstore.New(db),
		CallSlots:    callslotstore.New(db),
		Activity:     activitystore.New(db),
		Resets:       passwordreset.New(db, time.Hour),
		Audit:        audit,
		Log:          logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}
