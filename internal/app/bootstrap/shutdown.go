// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background services, drains queued email and closes the
// MongoDB client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if rt := deps.Runtime; rt != nil {
		if rt.Workers != nil {
			rt.Workers.Stop()
		}
		if rt.Hub != nil {
			rt.Hub.Stop()
		}
		if rt.LoginLimiter != nil {
			rt.LoginLimiter.Stop()
		}
		if rt.ContactLimit != nil {
			rt.ContactLimit.Stop()
		}
		if rt.Mail != nil {
			if err := rt.Mail.Close(ctx); err != nil {
				logger.Warn("mail queue not drained", zap.Error(err))
			}
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
