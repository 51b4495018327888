package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable through STORE_BACKEND.
const (
	StorePostgres = "postgres"
	StoreDynamo   = "dynamo"
	StoreMemory   = "memory"
)

// Messaging transports selectable through MESSAGING_TRANSPORT.
const (
	TransportWhatsApp = "whatsapp"
	TransportSNS      = "sns"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	StoreBackend string
	DatabaseURL  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	MessagingTransport string
	WhatsApp           WhatsApp
	SNSRegion          string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	OTPTTL               time.Duration
	ReminderPollInterval time.Duration
	ReminderBatchSize    int
	DispatchTimeout      time.Duration
	TokenCleanupInterval time.Duration // zero disables the cleanup loop

	AllowedOrigins    []string // CORS allowed origins; credentialed, so never "*"
	TrustProxyHeaders bool     // take the client IP from X-Forwarded-For / X-Real-IP
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users       string
	LoginTokens string
	Reminders   string
}

// WhatsApp configures the Cloud API client.
type WhatsApp struct {
	Token         string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	DryRun        bool
}

// Load reads all configuration from environment variables.
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	defaultBackend := StoreMemory
	if databaseURL != "" {
		defaultBackend = StorePostgres
	}
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", defaultBackend)),
		DatabaseURL:    databaseURL,
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:       getEnv("DYNAMO_TABLE_USERS", "users"),
			LoginTokens: getEnv("DYNAMO_TABLE_LOGIN_TOKENS", "login_tokens"),
			Reminders:   getEnv("DYNAMO_TABLE_REMINDERS", "reminders"),
		},
		MessagingTransport: strings.ToLower(getEnv("MESSAGING_TRANSPORT", TransportWhatsApp)),
		WhatsApp: WhatsApp{
			Token:         getEnv("WHATSAPP_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			APIVersion:    getEnv("WHATSAPP_API_VERSION", "v21.0"),
			BaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			DryRun:        getEnvBool("WHATSAPP_DRY_RUN", false),
		},
		SNSRegion:            getEnv("SNS_REGION", "us-east-1"),
		JWTPrivateKeyPath:    getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:     getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:            time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		OTPTTL:               time.Duration(getEnvInt("OTP_TTL_MINUTES", 5)) * time.Minute,
		ReminderPollInterval: time.Duration(getEnvInt("REMINDER_POLL_INTERVAL_SECONDS", 60)) * time.Second,
		ReminderBatchSize:    getEnvInt("REMINDER_BATCH_SIZE", 50),
		DispatchTimeout:      time.Duration(getEnvInt("DISPATCH_TIMEOUT_SECONDS", 15)) * time.Second,
		TokenCleanupInterval: time.Duration(getEnvInt("TOKEN_CLEANUP_INTERVAL_MINUTES", 60)) * time.Minute,
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		TrustProxyHeaders:    getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

// Validate rejects settings the service cannot run safely with.
func (c *Config) Validate() error {
	var errs []error
	if c.MessagingTransport == TransportWhatsApp && !c.WhatsApp.DryRun &&
		(c.WhatsApp.Token == "" || c.WhatsApp.PhoneNumberID == "") {
		errs = append(errs, errors.New("WHATSAPP_TOKEN and WHATSAPP_PHONE_NUMBER_ID are required unless WHATSAPP_DRY_RUN=true"))
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			errs = append(errs, errors.New("ALLOWED_ORIGINS cannot contain \"*\": session cookies need explicit origins"))
			break
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
