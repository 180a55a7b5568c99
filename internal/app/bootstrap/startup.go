// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/camphub/internal/app/features/help"
	"github.com/dalemusser/camphub/internal/app/maintenance"
	activitystore "github.com/dalemusser/camphub/internal/app/store/activity"
	faqstore "github.com/dalemusser/camphub/internal/app/store/faqs"
	invitestore "github.com/dalemusser/camphub/internal/app/store/invites"
	"github.com/dalemusser/camphub/internal/app/store/oauthstate"
	"github.com/dalemusser/camphub/internal/app/store/passwordreset"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auditlog"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/metrics"
	"github.com/dalemusser/camphub/internal/app/system/normalize"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/app/system/tasks"
	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"github.com/dalemusser/camphub/internal/app/system/workers"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	mailWorkers = 2
	mailBuffer  = 256

	// Contact form submissions allowed per client IP.
	contactLimit  = 5
	contactWindow = time.Hour
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It repairs data the API depends on (camp owners, legacy photos), reports
// schema problems, seeds FAQs and starts the background services that
// Shutdown later stops.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	rt := deps.Runtime
	if rt == nil {
		return errors.New("startup: runtime not initialised by ConnectDB")
	}

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, db, appCfg.AdminEmail, logger); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	runMaintenance(ctx, newMaintenance(db, appCfg, logger), coreCfg.Env == "prod", appCfg, logger)

	if appCfg.FAQSeed {
		seedCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		err := help.Seed(seedCtx, faqstore.New(db), logger)
		cancel()
		if err != nil {
			logger.Warn("faq seed failed", zap.Error(err))
		}
	}

	smtp, err := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
		Enabled:  appCfg.MailEnabled,
	}, logger)
	if err != nil {
		return err
	}
	rt.Mail = mailer.NewAsync(smtp, logger, mailWorkers, mailBuffer)
	rt.Metrics = metrics.New()
	rt.LoginLimiter = ratelimit.NewLoginLimiter()
	rt.ContactLimit = ratelimit.New(contactLimit, contactWindow)

	rt.Hub = notify.NewHub(logger)
	rt.Hub.Start()

	rt.Workers = workers.NewRunner(logger,
		tasks.InviteExpiryJob(invitestore.New(db), logger),
		tasks.OAuthStateCleanupJob(oauthstate.New(db), logger),
		tasks.PasswordResetCleanupJob(passwordreset.New(db, passwordreset.DefaultExpiry), logger),
	)
	return rt.Workers.Start()
}

func newAuditLogger(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(activitystore.New(db), logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Domain: appCfg.AuditLogDomain,
	})
}

func newMaintenance(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) *maintenance.Service {
	return maintenance.New(db, newAuditLogger(db, appCfg, logger), logger)
}

// runMaintenance applies the idempotent startup repairs. Failures are
// logged and do not stop the server.
func runMaintenance(ctx context.Context, svc *maintenance.Service, prod bool, appCfg AppConfig, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Batch())
	defer cancel()

	owners, err := svc.FixMissingOwners(ctx, appCfg.RepairOwnersSince)
	if err != nil {
		logger.Error("startup: repair camp owners failed", zap.Error(err))
	} else if len(owners.Fixed) > 0 || len(owners.Skipped) > 0 {
		logger.Info("startup: repaired camp owners",
			zap.Int("checked", owners.Checked),
			zap.Int("fixed", len(owners.Fixed)),
			zap.Strings("skipped", owners.Skipped))
	}

	if prod || appCfg.AutoMigratePhotos {
		photos, err := svc.MigratePhotos(ctx)
		if err != nil {
			logger.Error("startup: photo migration failed", zap.Error(err))
		} else if photos.Migrated > 0 {
			logger.Info("startup: migrated legacy photos", zap.Int("camps", photos.Migrated))
		}
	}

	schemas, err := svc.ValidateSchemas(ctx)
	if err != nil {
		logger.Error("startup: schema validation failed", zap.Error(err))
		return
	}
	for _, c := range schemas.Checks {
		if c.Invalid > 0 {
			logger.Warn("startup: documents failing schema check",
				zap.String("collection", c.Collection),
				zap.String("check", c.Check),
				zap.Int64("count", c.Invalid))
		}
	}
}

// ensureAdmin promotes the user with email to an active admin account, or
// creates one with a random password when none exists. A new admin sets
// a password with the reset flow or camphubctl reset-password.
func ensureAdmin(ctx context.Context, db *mongo.Database, email string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	email = normalize.Email(email)
	users := userstore.New(db)

	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.AccountType == models.AccountAdmin && u.IsActive {
			return nil
		}
		if err := users.Update(ctx, u.ID, bson.M{"account_type": models.AccountAdmin, "is_active": true}); err != nil {
			return err
		}
		logger.Info("promoted user to admin", zap.String("email", email), zap.String("from", u.AccountType))
		return nil
	case !errors.Is(err, mongo.ErrNoDocuments):
		return err
	}

	pw, err := auth.RandomPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	created, err := users.Create(ctx, models.User{
		Email:        email,
		PasswordHash: hash,
		AccountType:  models.AccountAdmin,
		Role:         models.RoleMember,
		FirstName:    "Site",
		LastName:     "Admin",
		IsVerified:   true,
	})
	if err != nil {
		return err
	}
	logger.Warn("created admin account; set its password with the reset flow",
		zap.String("email", email), zap.String("user_id", created.ID.Hex()))
	return nil
}
