// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvPrefix namespaces CampHub's environment variables.
const EnvPrefix = "CAMPHUB"

const (
	devJWTSecret    = "dev-only-change-me-please-0123456789ABCDEF"
	devCookieKey    = "dev-only-cookie-hash-key-change-me-0123456789"
	minProdSecretLn = 32
)

// appConfigKeys defines the configuration keys for CampHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: CAMPHUB_MONGO_URI, CAMPHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "camphub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size (default: 5)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 signing key for access tokens (at least 32 chars in prod)"},
	{Name: "jwt_expiry", Default: "168h", Desc: "Access token lifetime (e.g., 168h)"},

	{Name: "client_url", Default: "http://localhost:3000", Desc: "SPA origin for CORS and OAuth redirects"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for invite and password reset links"},
	{Name: "api_base_url", Default: "http://localhost:8080", Desc: "Public base URL of this API (OAuth callback)"},
	{Name: "cookie_hash_key", Default: devCookieKey, Desc: "Key for signing the OAuth state cookie"},

	// Uploads
	{Name: "upload_path", Default: "./uploads", Desc: "Local directory for uploaded photos"},
	{Name: "upload_url", Default: "/uploads", Desc: "URL prefix for serving uploaded photos"},
	{Name: "upload_max_mb", Default: 10, Desc: "Per-file upload limit in megabytes"},

	// Email/SMTP configuration
	{Name: "mail_enabled", Default: false, Desc: "Send email over SMTP (false logs messages instead)"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@camphub.org", Desc: "From email address"},
	{Name: "mail_from_name", Default: "CampHub", Desc: "From display name"},
	{Name: "support_email", Default: "", Desc: "Inbox for contact form messages (defaults to mail_from)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_domain", Default: "all", Desc: "Domain event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Startup maintenance
	{Name: "admin_email", Default: "", Desc: "Email of the admin user (promotes/creates on startup)"},
	{Name: "auto_migrate_photos", Default: false, Desc: "Convert legacy string photos at startup (always on in prod)"},
	{Name: "repair_owners_since", Default: "2025-12-01", Desc: "Repair camps without owners created on or after this date ('all' for every camp)"},
	{Name: "faq_seed", Default: true, Desc: "Seed default FAQs when the collection is empty"},

	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, CAMPHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	since, err := ParseSince(appValues.String("repair_owners_since"))
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("repair_owners_since: %w", err)
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTExpiry: appValues.Duration("jwt_expiry", 7*24*time.Hour),

		ClientURL:     strings.TrimRight(appValues.String("client_url"), "/"),
		BaseURL:       strings.TrimRight(appValues.String("base_url"), "/"),
		APIBaseURL:    strings.TrimRight(appValues.String("api_base_url"), "/"),
		CookieHashKey: appValues.String("cookie_hash_key"),

		UploadPath:  appValues.String("upload_path"),
		UploadURL:   appValues.String("upload_url"),
		UploadMaxMB: appValues.Int("upload_max_mb"),

		MailEnabled:  appValues.Bool("mail_enabled"),
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		SupportEmail: appValues.String("support_email"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogDomain: appValues.String("audit_log_domain"),

		AdminEmail:        appValues.String("admin_email"),
		AutoMigratePhotos: appValues.Bool("auto_migrate_photos"),
		RepairOwnersSince: since,
		FAQSeed:           appValues.Bool("faq_seed"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}
	if appCfg.SupportEmail == "" {
		appCfg.SupportEmail = appCfg.MailFrom
	}

	return coreCfg, appCfg, nil
}

// ParseSince reads a YYYY-MM-DD or RFC3339 cutoff. "all" and "" mean no
// cutoff and return the zero time.
func ParseSince(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, RFC3339 or 'all', got %q", v)
	}
	return t.UTC(), nil
}

// ValidateConfig performs app-specific config validation.
//
// It rejects a malformed MongoDB URI before any connection is attempted,
// and in prod refuses the development signing keys.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if appCfg.UploadMaxMB <= 0 {
		return fmt.Errorf("upload_max_mb must be positive, got %d", appCfg.UploadMaxMB)
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.JWTSecret == devJWTSecret || len(appCfg.JWTSecret) < minProdSecretLn {
			return fmt.Errorf("jwt_secret must be set to at least %d characters in prod", minProdSecretLn)
		}
		if appCfg.CookieHashKey == devCookieKey || len(appCfg.CookieHashKey) < minProdSecretLn {
			return fmt.Errorf("cookie_hash_key must be set to at least %d characters in prod", minProdSecretLn)
		}
	}
	return nil
}
