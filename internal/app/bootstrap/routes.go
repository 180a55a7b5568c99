// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"strings"

	adminfeature "github.com/dalemusser/camphub/internal/app/features/admin"
	admindeletefeature "github.com/dalemusser/camphub/internal/app/features/admindelete"
	applicationsfeature "github.com/dalemusser/camphub/internal/app/features/applications"
	authgooglefeature "github.com/dalemusser/camphub/internal/app/features/authgoogle"
	authnfeature "github.com/dalemusser/camphub/internal/app/features/authn"
	callslotsfeature "github.com/dalemusser/camphub/internal/app/features/callslots"
	campsfeature "github.com/dalemusser/camphub/internal/app/features/camps"
	categoriesfeature "github.com/dalemusser/camphub/internal/app/features/categories"
	diagnosticfeature "github.com/dalemusser/camphub/internal/app/features/diagnostic"
	eventsfeature "github.com/dalemusser/camphub/internal/app/features/events"
	healthfeature "github.com/dalemusser/camphub/internal/app/features/health"
	helpfeature "github.com/dalemusser/camphub/internal/app/features/help"
	invitesfeature "github.com/dalemusser/camphub/internal/app/features/invites"
	onboardingfeature "github.com/dalemusser/camphub/internal/app/features/onboarding"
	realtimefeature "github.com/dalemusser/camphub/internal/app/features/realtime"
	rostersfeature "github.com/dalemusser/camphub/internal/app/features/rosters"
	tasksfeature "github.com/dalemusser/camphub/internal/app/features/tasks"
	uploadfeature "github.com/dalemusser/camphub/internal/app/features/upload"
	usersfeature "github.com/dalemusser/camphub/internal/app/features/users"
	"github.com/dalemusser/camphub/internal/app/maintenance"
	userstore "github.com/dalemusser/camphub/internal/app/store/users"
	"github.com/dalemusser/camphub/internal/app/system/auth"
	"github.com/dalemusser/camphub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint. Set at build time with
// -ldflags "-X github.com/dalemusser/camphub/internal/app/bootstrap.Version=...".
var Version = "dev"

// BuildHandler constructs the root HTTP handler (router) for CampHub.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so the runtime services (hub, mailer, metrics,
// limiters) are ready. Every JSON endpoint lives under /api; uploaded
// photos are served from upload_url and Prometheus metrics from /metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	rt := deps.Runtime
	if rt == nil || rt.Hub == nil {
		return nil, errors.New("build handler: Startup has not run")
	}
	db := deps.MongoDatabase

	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTExpiry, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	// The fetcher reloads the user on every request so deactivation and
	// account type changes take effect immediately.
	mw := auth.NewMiddleware(tokens, userstore.NewFetcher(db), logger)
	audit := newAuditLogger(db, appCfg, logger)
	maint := maintenance.New(db, audit, logger)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(appCfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if appCfg.MetricsEnabled {
		r.Use(rt.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", rt.Metrics.Handler())
	}

	// Uploaded photos
	uploadURL := "/" + strings.Trim(appCfg.UploadURL, "/")
	r.Handle(uploadURL+"/*", fileserver.Handler(uploadURL, appCfg.UploadPath))

	r.Route("/api", func(api chi.Router) {
		api.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, Version, logger)))

		// Accounts
		authnHandler := authnfeature.NewHandler(db, tokens, rt.Mail, audit, rt.Metrics, rt.LoginLimiter, appCfg.BaseURL, logger)
		api.Mount("/auth", authnfeature.Routes(authnHandler, mw))

		googleHandler := authgooglefeature.NewHandler(db, tokens, audit, rt.Metrics, []byte(appCfg.CookieHashKey),
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.APIBaseURL, appCfg.ClientURL, logger)
		api.Mount("/oauth/google", authgooglefeature.Routes(googleHandler))

		api.Mount("/onboarding", onboardingfeature.Routes(onboardingfeature.NewHandler(db, audit, logger), mw))
		api.Mount("/users", usersfeature.Routes(usersfeature.NewHandler(db, audit, logger), mw))

		// Camps and recruiting
		invitesHandler := invitesfeature.NewHandler(db, rt.Mail, rt.Metrics, appCfg.BaseURL, logger)
		campsRouter := campsfeature.Routes(campsfeature.NewHandler(db, audit, logger), mw)
		campsRouter.Mount("/{campId}/invites", invitesfeature.CampRoutes(invitesHandler, mw))
		api.Mount("/camps", campsRouter)
		api.Mount("/invites", invitesfeature.Routes(invitesHandler, mw))

		appsHandler := applicationsfeature.NewHandler(db, rt.Mail, rt.Hub, audit, rt.Metrics, appCfg.BaseURL, logger)
		api.Mount("/applications", applicationsfeature.Routes(appsHandler, mw))

		rostersHandler := rostersfeature.NewHandler(db, rt.Mail, rt.Hub, audit, appCfg.BaseURL, logger)
		api.Mount("/rosters", rostersfeature.Routes(rostersHandler, mw))

		tasksHandler := tasksfeature.NewHandler(db, rt.Mail, rt.Hub, appCfg.BaseURL, logger)
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler, mw))
		api.Mount("/shifts", eventsfeature.Routes(eventsfeature.NewHandler(db, rt.Hub, logger), mw))
		api.Mount("/call-slots", callslotsfeature.Routes(callslotsfeature.NewHandler(db, logger), mw))

		api.Mount("/categories", categoriesfeature.Routes(categoriesfeature.NewCategories(db, logger), mw))
		api.Mount("/skills", categoriesfeature.Routes(categoriesfeature.NewSkills(db, logger), mw))

		files := uploadfeature.NewDisk(appCfg.UploadPath, appCfg.APIBaseURL+uploadURL)
		api.Mount("/upload", uploadfeature.Routes(uploadfeature.NewHandler(db, files, appCfg.UploadMaxMB, logger), mw))

		// Help center
		helpHandler := helpfeature.NewHandler(db, rt.Mail, appCfg.SupportEmail, rt.ContactLimit, logger)
		api.Mount("/help", helpfeature.Routes(helpHandler, mw))

		// Administration
		adminRouter := adminfeature.Routes(adminfeature.NewHandler(db, maint, audit, logger), mw)
		adminRouter.Mount("/faqs", helpfeature.AdminRoutes(helpHandler, mw))
		api.Mount("/admin", adminRouter)
		api.Mount("/admin-delete", admindeletefeature.Routes(admindeletefeature.NewHandler(maint, logger), mw))
		api.Mount("/diagnostic", diagnosticfeature.Routes(diagnosticfeature.NewHandler(maint, logger), mw))

		// Real-time notifications
		api.Mount("/ws", realtimefeature.Routes(realtimefeature.NewHandler(db, rt.Hub, mw, allowedOrigins(appCfg), logger)))

		api.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			respond.Message(w, http.StatusNotFound, "Route not found")
		})
	})

	logger.Info("routes mounted",
		zap.String("env", coreCfg.Env),
		zap.Bool("metrics", appCfg.MetricsEnabled),
		zap.Bool("google_oauth", googleConfigured(appCfg)))
	return r, nil
}

func allowedOrigins(appCfg AppConfig) []string {
	if appCfg.ClientURL == "" {
		return []string{"*"}
	}
	return []string{appCfg.ClientURL}
}

func googleConfigured(appCfg AppConfig) bool {
	return appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != ""
}
