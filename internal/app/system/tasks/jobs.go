// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	invitestore "github.com/dalemusser/camphub/internal/app/store/invites"
	"github.com/dalemusser/camphub/internal/app/store/oauthstate"
	"github.com/dalemusser/camphub/internal/app/store/passwordreset"
	"go.uber.org/zap"
)

// InviteExpiryJob marks pending and sent invites past their expiry as expired.
func InviteExpiryJob(store *invitestore.Store, logger *zap.Logger) Job {
	return Job{
		Name:       "invite-expiry",
		Interval:   1 * time.Hour,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			count, err := store.ExpireStale(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("expired invites", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// PasswordResetCleanupJob removes expired and used reset tokens.
func PasswordResetCleanupJob(store *passwordreset.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "password-reset-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := store.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up password reset tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}
