package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the env vars without which Validate always fails.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DOCUSIGN_CONNECT_HMAC_KEY", "connect-key")
	t.Setenv("DOCUSIGN_INTEGRATION_KEY", "integration-key")
	t.Setenv("DOCUSIGN_USER_ID", "user-id")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./DB.json", cfg.StorePath)
	assert.Equal(t, "./id_rsa", cfg.PrivateKeyPath)
	assert.Equal(t, "account-d.docusign.com", cfg.AuthServer)
	assert.Equal(t, time.Hour, cfg.TokenLifetime)

	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_PATH", "/var/lib/esign/DB.json")
	t.Setenv("DOCUSIGN_AUTH_SERVER", "account.docusign.com")
	t.Setenv("DOCUSIGN_TOKEN_LIFETIME", "30m")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/var/lib/esign/DB.json", cfg.StorePath)
	assert.Equal(t, "account.docusign.com", cfg.AuthServer)
	assert.Equal(t, 30*time.Minute, cfg.TokenLifetime)
}

func TestLoadIgnoresBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("DOCUSIGN_TOKEN_LIFETIME", "not-a-duration")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.TokenLifetime)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-numeric port", func(c *Config) { c.Port = "abc" }},
		{"empty store path", func(c *Config) { c.StorePath = "" }},
		{"missing hmac key", func(c *Config) { c.ConnectHMACKey = "" }},
		{"missing integration key", func(c *Config) { c.IntegrationKey = "" }},
		{"missing user id", func(c *Config) { c.UserID = "" }},
		{"empty private key path", func(c *Config) { c.PrivateKeyPath = "" }},
		{"token lifetime too short", func(c *Config) { c.TokenLifetime = 30 * time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			cfg := Load()
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
