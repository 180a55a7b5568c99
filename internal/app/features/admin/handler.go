// internal/app/features/admin/handler.go
//
// Package admin serves the site administrator screens: the dashboard,
// user and camp management, activity history, and camp owner repair.
package admin

import (
	"github.com/dalemusser/camphub/internal/app/maintenance"
	activitystore "github.com/dalemusser/camphub/internal/app/store/activity"
	applicationstore "github.com/dalemusser/camphub/internal/app/store/applications"
	campstore "github.com/dalemusser/camphub/internal/app/store/camps"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RecentSignups is how many new users the dashboard lists.
const RecentSignups = 10

type Handler struct {
	Users        *userstore.Store
	Camps        *campstore.Store
	Applications *applicationstore.Store
	Activity     *activitystore.Store
	Maint        *maintenance.Service
	Audit        *auditlog.Logger
	Log          *zap.Logger
}

func NewHandler(db *mongo.Database, maint *maintenance.Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        userstore.New(db),
		Camps:        campstore.New(db),
		Applications: applicationstore.New(db),
		Activity:     activitystore.New(db),
		Maint:        maint,
		Audit:        audit,
		Log:          logger,
	}
}

var (
	errUserNotFound = respond.NotFound("User not found")
	errCampNotFound = respond.NotFound("Camp not found")
)
