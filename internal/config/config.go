package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"chatsync/internal/constants"
	"chatsync/internal/models"
	"chatsync/internal/security"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads the JSON config file, applies defaults and environment
// overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = int(constants.DefaultServerReadTimeout.Seconds())
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = int(constants.DefaultServerWriteTimeout.Seconds())
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = int(constants.DefaultServerIdleTimeout.Seconds())
	}

	if c.Chat.RetentionDays <= 0 {
		c.Chat.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Chat.DebugEventCapacity <= 0 {
		c.Chat.DebugEventCapacity = constants.DefaultDebugEventCapacity
	}
	if c.Chat.DebugEventMaxAgeMin <= 0 {
		c.Chat.DebugEventMaxAgeMin = int(constants.DefaultDebugEventMaxAge.Minutes())
	}
	if c.Chat.SendTimeoutSec <= 0 {
		c.Chat.SendTimeoutSec = int(constants.DefaultSendTimeout.Seconds())
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultInitialBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "chatsync"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 0.1
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	// The debug store is enabled only by the literal value "true"; unset or
	// anything else fails closed.
	c.Chat.DebugEnabled = os.Getenv("CHAT_DEBUG") == "true"
}

// validateSecurity enforces production-only constraints.
func validateSecurity(c *models.Config) error {
	if os.Getenv("CHATSYNC_ENV") != "production" {
		return nil
	}

	if c.LogLevel == "debug" {
		return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
	}
	if c.Chat.DebugEnabled {
		fmt.Fprintf(os.Stderr, "WARNING: CHAT_DEBUG is enabled in production; the debug buffer holds connection metadata.\n")
	}
	return nil
}
