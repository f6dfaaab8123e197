// Package config provides configuration management for the e-signature
// gateway. It handles loading configuration from environment variables with
// sensible defaults and validates the configuration to ensure the application
// starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 3000)
//   - LOG_LEVEL: Logging level (default: info)
//   - STORE_PATH: Path to the envelope store file (default: ./DB.json)
//
// DocuSign Integration:
//   - DOCUSIGN_CONNECT_HMAC_KEY: Shared secret for Connect webhook signatures (required)
//   - DOCUSIGN_INTEGRATION_KEY: Integration key (client id) for the JWT grant (required)
//   - DOCUSIGN_USER_ID: Impersonated API user id for the JWT grant (required)
//   - DOCUSIGN_PRIVATE_KEY_PATH: Path to the RSA private key PEM file (default: ./id_rsa)
//   - DOCUSIGN_AUTH_SERVER: OAuth host, e.g. account-d.docusign.com (default: account-d.docusign.com)
//   - DOCUSIGN_TOKEN_LIFETIME: Requested access token lifetime (default: 1h)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the e-signature gateway.
// All fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port      string // Server port number
	LogLevel  string // Logging level (debug, info, warn, error)
	StorePath string // Path to the JSON envelope store

	// DocuSign integration
	ConnectHMACKey string        // Shared secret for Connect webhook HMAC signatures
	IntegrationKey string        // Integration key (client id) for the JWT grant
	UserID         string        // Impersonated API user id
	PrivateKeyPath string        // RSA private key PEM file for signing the JWT assertion
	AuthServer     string        // OAuth host (account-d.docusign.com for the demo environment)
	TokenLifetime  time.Duration // Requested access token lifetime
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding default
// value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "3000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		StorePath: getEnv("STORE_PATH", "./DB.json"),

		ConnectHMACKey: getEnv("DOCUSIGN_CONNECT_HMAC_KEY", ""),
		IntegrationKey: getEnv("DOCUSIGN_INTEGRATION_KEY", ""),
		UserID:         getEnv("DOCUSIGN_USER_ID", ""),
		PrivateKeyPath: getEnv("DOCUSIGN_PRIVATE_KEY_PATH", "./id_rsa"),
		AuthServer:     getEnv("DOCUSIGN_AUTH_SERVER", "account-d.docusign.com"),
		TokenLifetime:  getDurationEnv("DOCUSIGN_TOKEN_LIFETIME", time.Hour),
	}
}

// Validate checks that all required configuration values are set and
// well-formed. It returns a descriptive error for the first problem found.
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a number, got %q", c.Port)
	}

	if c.StorePath == "" {
		return fmt.Errorf("STORE_PATH must not be empty")
	}

	if c.ConnectHMACKey == "" {
		return fmt.Errorf("DOCUSIGN_CONNECT_HMAC_KEY is required")
	}

	if c.IntegrationKey == "" {
		return fmt.Errorf("DOCUSIGN_INTEGRATION_KEY is required")
	}

	if c.UserID == "" {
		return fmt.Errorf("DOCUSIGN_USER_ID is required")
	}

	if c.PrivateKeyPath == "" {
		return fmt.Errorf("DOCUSIGN_PRIVATE_KEY_PATH must not be empty")
	}

	if c.TokenLifetime < time.Minute {
		return fmt.Errorf("DOCUSIGN_TOKEN_LIFETIME must be at least one minute, got %s", c.TokenLifetime)
	}

	return nil
}

// getEnv retrieves an environment variable value or returns a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable or returns a default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
