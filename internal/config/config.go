package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PortNumber53/landing-intake/backend/internal/offers"
)

// Config captures runtime configuration values used by the intake service.
// It is built once at startup and only read afterwards.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Defaults to ":18111".
	ServerAddress string

	// Environment selects the logger flavour ("development" or "production").
	Environment string

	// LogLevel is the minimum zap level. Defaults to "info".
	LogLevel string

	// DatabaseURL is the optional Postgres DSN for the request log.
	DatabaseURL string

	// TelegramBotToken and TelegramChatID address the operators' chat.
	TelegramBotToken string
	TelegramChatID   string

	// TelegramAPIURL overrides the Bot API host.
	TelegramAPIURL string

	// StripeSecretKey authenticates checkout session creation.
	StripeSecretKey string

	// StripeWebhookSecret verifies webhook signatures.
	StripeWebhookSecret string

	// StripeAPIURL overrides the Stripe API base URL.
	StripeAPIURL string

	// PublicSiteURL is the redirect origin used when a request carries no Origin header.
	PublicSiteURL string

	// NotifyLocation is the time zone of the notification time line.
	NotifyLocation *time.Location

	// Offers maps offer ids to prices and purchase modes.
	Offers offers.Catalog
}

const (
	defaultServerAddress = ":18111"
	defaultEnvironment   = "development"
	defaultLogLevel      = "info"
	envServerAddress     = "BACKEND_ADDR"
	envEnvironment       = "APP_ENV"
	envLogLevel          = "LOG_LEVEL"
	envDatabaseURL       = "DATABASE_URL"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramChatID    = "TELEGRAM_CHAT_ID"
	envTelegramAPIURL    = "TELEGRAM_API_URL"
	envStripeSecretKey   = "STRIPE_SECRET_KEY"
	envStripeWebhook     = "STRIPE_WEBHOOK_SECRET"
	envStripeAPIURL      = "STRIPE_API_URL"
	envPublicSiteURL     = "PUBLIC_SITE_URL"
	envNotifyTimezone    = "NOTIFY_TIMEZONE"
	envOffersFile        = "OFFERS_FILE"
)

// Load reads configuration from environment variables and applies defaults.
// Secrets are optional here: each handler reports its own missing secrets per
// request. Malformed values return an error.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		ServerAddress:       firstNonEmpty(get(envServerAddress), defaultServerAddress),
		Environment:         strings.ToLower(firstNonEmpty(get(envEnvironment), defaultEnvironment)),
		LogLevel:            strings.ToLower(firstNonEmpty(get(envLogLevel), defaultLogLevel)),
		DatabaseURL:         get(envDatabaseURL),
		TelegramBotToken:    get(envTelegramBotToken),
		TelegramChatID:      get(envTelegramChatID),
		TelegramAPIURL:      get(envTelegramAPIURL),
		StripeSecretKey:     get(envStripeSecretKey),
		StripeWebhookSecret: get(envStripeWebhook),
		StripeAPIURL:        get(envStripeAPIURL),
		PublicSiteURL:       strings.TrimSuffix(get(envPublicSiteURL), "/"),
		NotifyLocation:      time.Local,
	}

	if cfg.PublicSiteURL != "" {
		if err := validateOrigin(cfg.PublicSiteURL); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envPublicSiteURL, err)
		}
	}

	if tz := get(envNotifyTimezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envNotifyTimezone, err)
		}
		cfg.NotifyLocation = loc
	}

	catalog, err := offers.Load(get, get(envOffersFile))
	if err != nil {
		return Config{}, err
	}
	cfg.Offers = catalog

	return cfg, nil
}

// TelegramConfigured reports whether lead and payment notifications can be sent.
func (c Config) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validateOrigin(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
