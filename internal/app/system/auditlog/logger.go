// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/camphub/internal/app/store/activity"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted by Config fields.
const (
	DestAll = "all" // activity_logs + zap
	DestDB  = "db"
	DestLog = "log"
	DestOff = "off"
)

// Config selects where each category of activity is written.
type Config struct {
	// Auth covers sign-in, registration and password events.
	Auth string
	// Domain covers everything else.
	Domain string
}

// Logger records activity to the activity_logs collection and to zap.
// Recording never fails the caller; store errors are logged.
type Logger struct {
	store  *activity.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new Logger.
func New(store *activity.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

var authTypes = map[string]bool{
	models.ActivityLogin:           true,
	models.ActivityLoginFailed:     true,
	models.ActivityRegistered:      true,
	models.ActivityPasswordChanged: true,
	models.ActivityPasswordReset:   true,
}

func (l *Logger) destination(activityType string) string {
	d := l.config.Domain
	if authTypes[activityType] {
		d = l.config.Auth
	}
	if d == "" {
		return DestAll
	}
	return d
}

// Record writes one activity entry. A nil Logger is a no-op.
func (l *Logger) Record(ctx context.Context, entityType string, entityID, actorID *primitive.ObjectID, activityType string, details map[string]any) {
	if l == nil {
		return
	}
	dest := l.destination(activityType)
	if dest == DestOff {
		return
	}

	entry := models.ActivityLog{
		EntityType:   entityType,
		EntityID:     entityID,
		ActingUserID: actorID,
		ActivityType: activityType,
		Details:      details,
	}

	if dest == DestAll || dest == DestLog {
		l.logToZap(entry)
	}
	if (dest == DestAll || dest == DestDB) && l.store != nil {
		if err := l.store.Create(ctx, entry); err != nil {
			l.zapLog.Error("failed to record activity",
				zap.Error(err),
				zap.String("activity_type", activityType))
		}
	}
}

func (l *Logger) logToZap(a models.ActivityLog) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("entity_type", a.EntityType),
		zap.String("activity_type", a.ActivityType),
	}
	if a.EntityID != nil {
		fields = append(fields, zap.String("entity_id", a.EntityID.Hex()))
	}
	if a.ActingUserID != nil {
		fields = append(fields, zap.String("actor_id", a.ActingUserID.Hex()))
	}
	if len(a.Details) > 0 {
		fields = append(fields, zap.Any("details", a.Details))
	}

	if a.ActivityType == models.ActivityLoginFailed {
		l.zapLog.Warn("activity", fields...)
		return
	}
	l.zapLog.Info("activity", fields...)
}

// Member records an event about a user.
func (l *Logger) Member(ctx context.Context, userID, actorID primitive.ObjectID, activityType string, details map[string]any) {
	l.Record(ctx, models.EntityMember, &userID, &actorID, activityType, details)
}

// Camp records an event about a camp.
func (l *Logger) Camp(ctx context.Context, campID, actorID primitive.ObjectID, activityType string, details map[string]any) {
	l.Record(ctx, models.EntityCamp, &campID, &actorID, activityType, details)
}

// System records an event not tied to one entity. actorID may be nil for
// startup repairs.
func (l *Logger) System(ctx context.Context, actorID *primitive.ObjectID, activityType string, details map[string]any) {
	l.Record(ctx, models.EntitySystem, nil, actorID, activityType, details)
}

// LoginSuccess records a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	l.Record(ctx, models.EntityMember, &userID, &userID, models.ActivityLogin, map[string]any{
		"method":     method,
		"ip":         ratelimit.ClientIP(r),
		"user_agent": r.UserAgent(),
	})
}

// LoginFailure records a failed sign-in. userID is nil when the email is unknown.
func (l *Logger) LoginFailure(ctx context.Context, r *http.Request, userID *primitive.ObjectID, email, reason string) {
	l.Record(ctx, models.EntityMember, userID, nil, models.ActivityLoginFailed, map[string]any{
		"email":  email,
		"reason": reason,
		"ip":     ratelimit.ClientIP(r),
	})
}

// Registered records a new account.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID primitive.ObjectID, accountType, method string) {
	l.Record(ctx, models.EntityMember, &userID, &userID, models.ActivityRegistered, map[string]any{
		"account_type": accountType,
		"method":       method,
		"ip":           ratelimit.ClientIP(r),
	})
}

// PasswordChanged records a password change made while signed in.
func (l *Logger) PasswordChanged(ctx context.Context, userID primitive.ObjectID) {
	l.Record(ctx, models.EntityMember, &userID, &userID, models.ActivityPasswordChanged, nil)
}

// PasswordReset records a completed reset-link flow.
func (l *Logger) PasswordReset(ctx context.Context, userID primitive.ObjectID) {
	l.Record(ctx, models.EntityMember, &userID, &userID, models.ActivityPasswordReset, nil)
}
