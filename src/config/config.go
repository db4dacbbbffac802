package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Service identity, reported on the health endpoint.
const (
	ServiceName    = "taxinator-middleware"
	ServiceVersion = "0.1.0"
)

type AppConfig struct {
	Port         string
	LogLevel     string
	Environment  string
	DatabasePath string

	// Optional JSON file overriding the built-in vendor template catalog.
	TemplateCatalogPath string

	// Key used to sign export download tokens (HS256). Must be >= 32 bytes.
	ExportSigningKey string

	// Policy switch: allow export while a job sits in needs_review.
	ExportFromNeedsReview bool

	// Reconciliation tolerance for aggregate totals, as a decimal string.
	ReconcileTolerance string

	MaxRequestBytes int64

	// AI-assisted translation (Gemini). Disabled when the API key is empty.
	GeminiAPIKey     string
	AITranslateModel string

	// Export-ready notifications.
	NotificationProvider string
	NotifyRecipient      string

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail string
	SenderName  string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	signingKey := getEnv("EXPORT_SIGNING_KEY", "insecure-development-export-signing-key-32b!")
	if signingKey == "insecure-development-export-signing-key-32b!" {
		log.Println("WARNING: Using default insecure EXPORT_SIGNING_KEY. Set EXPORT_SIGNING_KEY for production.")
	}
	if len(signingKey) < 32 {
		log.Fatalf("FATAL: EXPORT_SIGNING_KEY must be at least 32 bytes long. Current length: %d", len(signingKey))
	}

	maxRequestBytesStr := getEnv("MAX_REQUEST_BYTES", "10485760")
	maxRequestBytes, err := strconv.ParseInt(maxRequestBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_REQUEST_BYTES format '%s'. Using default 10MB. Error: %v", maxRequestBytesStr, err)
		maxRequestBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		DatabasePath: getEnv("DATABASE_PATH", "./taxinator.db"),

		TemplateCatalogPath: getEnv("TEMPLATE_CATALOG_PATH", ""),

		ExportSigningKey:      signingKey,
		ExportFromNeedsReview: getEnvAsBool("EXPORT_FROM_NEEDS_REVIEW", false),
		ReconcileTolerance:    getEnv("RECONCILE_TOLERANCE", "0.01"),

		MaxRequestBytes: maxRequestBytes,

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		AITranslateModel: getEnv("AI_TRANSLATE_MODEL", "gemini-2.0-flash"),

		NotificationProvider: getEnv("NOTIFICATION_PROVIDER", "mock"),
		NotifyRecipient:      getEnv("NOTIFY_RECIPIENT", ""),

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail: getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:  getEnv("SENDER_NAME", "Taxinator Middleware"),
	}

	if Cfg.NotificationProvider == "mailgun" {
		if Cfg.MailgunDomain == "" || Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN and MAILGUN_PRIVATE_API_KEY are required when NOTIFICATION_PROVIDER is 'mailgun'.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, NotificationProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.NotificationProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

// DefaultConfig returns a config suitable for tests: in-memory database,
// permissive defaults, no external providers.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Port:                 "0",
		LogLevel:             "error",
		Environment:          "test",
		DatabasePath:         ":memory:",
		ExportSigningKey:     "test-export-signing-key-0123456789abcdef",
		ReconcileTolerance:   "0.01",
		MaxRequestBytes:      10 * 1024 * 1024,
		AITranslateModel:     "gemini-2.0-flash",
		NotificationProvider: "mock",
		SenderEmail:          "noreply@example.com",
		SenderName:           "Taxinator Middleware",
	}
}
