package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORE_BACKEND", "")

	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, TransportWhatsApp, cfg.MessagingTransport)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 60*time.Second, cfg.ReminderPollInterval)
	assert.Equal(t, 50, cfg.ReminderBatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoad_DatabaseURLSelectsPostgres(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pinme")
	t.Setenv("STORE_BACKEND", "")
	assert.Equal(t, StorePostgres, Load().StoreBackend)

	t.Setenv("STORE_BACKEND", "DYNAMO")
	assert.Equal(t, StoreDynamo, Load().StoreBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OTP_TTL_MINUTES", "10")
	t.Setenv("REMINDER_BATCH_SIZE", "not-a-number")
	t.Setenv("WHATSAPP_DRY_RUN", "true")
	t.Setenv("TOKEN_CLEANUP_INTERVAL_MINUTES", "0")

	cfg := Load()
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 50, cfg.ReminderBatchSize)
	assert.True(t, cfg.WhatsApp.DryRun)
	assert.Zero(t, cfg.TokenCleanupInterval)
}

func TestLoad_AllowedOriginsList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://ledger.pinme.in, https://staging.pinme.in,")
	assert.Equal(t, []string{"https://ledger.pinme.in", "https://staging.pinme.in"}, Load().AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			MessagingTransport: TransportWhatsApp,
			WhatsApp:           WhatsApp{Token: "secret", PhoneNumberID: "12345"},
			AllowedOrigins:     []string{"https://ledger.pinme.in"},
		}
	}
	assert.NoError(t, valid().Validate())

	noToken := valid()
	noToken.WhatsApp.Token = ""
	assert.ErrorContains(t, noToken.Validate(), "WHATSAPP_TOKEN")

	dryRun := valid()
	dryRun.WhatsApp = WhatsApp{DryRun: true}
	assert.NoError(t, dryRun.Validate())

	smsOnly := valid()
	smsOnly.MessagingTransport = TransportSNS
	smsOnly.WhatsApp = WhatsApp{}
	assert.NoError(t, smsOnly.Validate())

	wildcard := valid()
	wildcard.AllowedOrigins = []string{"https://ledger.pinme.in", "*"}
	assert.ErrorContains(t, wildcard.Validate(), "ALLOWED_ORIGINS")
}
