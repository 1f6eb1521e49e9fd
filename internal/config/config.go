package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string
	AppURL      string
	LogLevel    string

	DatabaseURL string

	IdentityURL        string
	IdentityServiceKey string

	StripeSecretKey     string
	StripeWebhookSecret string
	SessionSecret       string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	AdminEmail string

	RedisAddr string
	UploadDir string
}

// Load reads configuration from the environment and an optional .env file.
// It fails closed: a missing or malformed required variable is an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "turuturu"),
		AppVersion:  getenv("APP_VERSION", "1.0.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		AppURL:      strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		IdentityURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("IDENTITY_URL")), "/"),
		IdentityServiceKey: strings.TrimSpace(os.Getenv("IDENTITY_SERVICE_KEY")),

		StripeSecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		SessionSecret:       strings.TrimSpace(os.Getenv("SESSION_SECRET")),

		SMTPHost:   getenv("SMTP_HOST", ""),
		SMTPPort:   getenvInt("SMTP_PORT", 587),
		SMTPUser:   getenv("SMTP_USER", ""),
		SMTPPass:   getenv("SMTP_PASS", ""),
		SMTPFrom:   getenv("SMTP_FROM", "TuruTuru App"),
		AdminEmail: getenv("ADMIN_EMAIL", ""),

		RedisAddr: getenv("REDIS_ADDR", ""),
		UploadDir: getenv("UPLOAD_DIR", "./public/uploads"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	required := map[string]string{
		"DATABASE_URL":          c.DatabaseURL,
		"IDENTITY_URL":          c.IdentityURL,
		"IDENTITY_SERVICE_KEY":  c.IdentityServiceKey,
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
		"SESSION_SECRET":        c.SessionSecret,
	}
	missing := make([]string, 0, len(required))
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if _, err := url.Parse(c.IdentityURL); err != nil {
		return fmt.Errorf("malformed IDENTITY_URL: %w", err)
	}
	if !strings.Contains(c.DatabaseURL, "://") && !strings.HasPrefix(c.DatabaseURL, "file:") {
		return fmt.Errorf("malformed DATABASE_URL %q", c.DatabaseURL)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Module wires configuration for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
