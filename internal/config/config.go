package config

import "os"

// KashierConfig holds the credentials and endpoints for the Kashier
// hosted-checkout gateway. WebhookSecret signs inbound webhook calls,
// APIKey signs outbound checkout URLs.
type KashierConfig struct {
	MerchantID    string
	APIKey        string
	WebhookSecret string
	CheckoutURL   string
	// WebhookURL is this server's callback endpoint, handed to the
	// gateway on every checkout initiation.
	WebhookURL string
	Mode       string // "test" or "live"
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Config is the process-wide configuration, loaded once at startup and
// passed explicitly into service constructors.
type Config struct {
	Port                    string
	AppBaseURL              string
	DatabaseURL             string
	RedisURL                string
	FirebaseCredentialsPath string

	// PaymentSecret signs transaction records for tamper detection.
	// PaymentEncryptionKey must be 32 bytes (AES-256) and encrypts
	// sensitive customer fields before persistence.
	PaymentSecret        string
	PaymentEncryptionKey string

	DefaultCurrency string

	Kashier KashierConfig
	SMTP    SMTPConfig
}

// Load reads configuration from the environment. godotenv is loaded by
// the caller (cmd/server) before this runs.
func Load() *Config {
	appBaseURL := getEnv("APP_BASE_URL", "http://localhost:8080")
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		AppBaseURL:              appBaseURL,
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisURL:                os.Getenv("REDIS_URL"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
		PaymentSecret:           os.Getenv("PAYMENT_SECRET"),
		PaymentEncryptionKey:    os.Getenv("PAYMENT_ENCRYPTION_KEY"),
		DefaultCurrency:         getEnv("DEFAULT_CURRENCY", "EGP"),
		Kashier: KashierConfig{
			MerchantID:    os.Getenv("KASHIER_MERCHANT_ID"),
			APIKey:        os.Getenv("KASHIER_API_KEY"),
			WebhookSecret: os.Getenv("KASHIER_WEBHOOK_SECRET"),
			CheckoutURL:   getEnv("KASHIER_CHECKOUT_URL", "https://checkout.kashier.io"),
			WebhookURL:    appBaseURL + "/webhooks/kashier",
			Mode:          getEnv("KASHIER_MODE", "test"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
