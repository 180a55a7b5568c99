// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/camphub/internal/app/system/mailer"
	"github.com/dalemusser/camphub/internal/app/system/metrics"
	"github.com/dalemusser/camphub/internal/app/system/notify"
	"github.com/dalemusser/camphub/internal/app/system/ratelimit"
	"github.com/dalemusser/camphub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value, so the long-lived services started in
// Startup hang off the shared Runtime pointer where BuildHandler and
// Shutdown can reach them.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Runtime       *Runtime
}

// Runtime is the set of background services owned by the server process.
type Runtime struct {
	Hub          *notify.Hub
	Mail         *mailer.Async
	Workers      *workers.Runner
	Metrics      *metrics.Metrics
	LoginLimiter *ratelimit.LoginLimiter
	ContactLimit *ratelimit.Limiter
}
