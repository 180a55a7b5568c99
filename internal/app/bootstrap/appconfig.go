// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for CampHub.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and the environment name; everything CampHub needs
// beyond that lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string        // HS256 signing key
	JWTExpiry time.Duration // token lifetime

	// URLs
	ClientURL  string // SPA origin, used for CORS and OAuth redirects
	BaseURL    string // base for invite and password reset links
	APIBaseURL string // base for the OAuth callback

	// Signs the OAuth state cookie
	CookieHashKey string

	// Local upload storage
	UploadPath  string // directory uploaded files are written to
	UploadURL   string // URL prefix the files are served under
	UploadMaxMB int

	// Email/SMTP configuration
	MailEnabled  bool // false logs messages instead of sending them
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string
	SupportEmail string // inbox for contact form messages; MailFrom when blank

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth   string
	AuditLogDomain string

	// Startup maintenance
	AdminEmail        string    // promoted to (or created as) an admin on startup
	AutoMigratePhotos bool      // forced on in prod
	RepairOwnersSince time.Time // zero repairs every camp
	FAQSeed           bool

	MetricsEnabled bool
}
