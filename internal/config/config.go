// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Store  StoreConfig
	Notify NotifyConfig
	Jobs   JobsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	// BasePath is the directory holding the SQLite database and the
	// state mirror snapshot (default: ~/TitleKeep).
	BasePath string
	// DatabaseFile is the SQLite file name inside BasePath.
	DatabaseFile string
	// MirrorFile is the state mirror snapshot file name inside BasePath.
	MirrorFile string
}

// NotifyConfig holds outbound notification configuration.
type NotifyConfig struct {
	// FallbackWebhookURL is the legacy single-tenant destination used when
	// the tenant registry cannot resolve one (may be empty).
	FallbackWebhookURL string
	// FallbackMention is the optional mention target for the legacy destination.
	FallbackMention string
	// FallbackFile is an optional JSON drop-in that overrides the two values
	// above and is hot-reloaded while the process runs (may be empty).
	FallbackFile string
	// Timeout bounds each outbound webhook call.
	Timeout time.Duration
	// CRMEndpoint is an optional external sink mirroring bookings (may be empty).
	CRMEndpoint string
}

// JobsConfig holds background job configuration.
type JobsConfig struct {
	ExpiryInterval   time.Duration // expiry sweep tick (default: 60s)
	ReminderInterval time.Duration // reminder dispatch tick (default: 60s)
}

// DatabasePath returns the full path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Store.BasePath, c.Store.DatabaseFile)
}

// MirrorPath returns the full path of the state mirror snapshot file.
func (c *Config) MirrorPath() string {
	return filepath.Join(c.Store.BasePath, c.Store.MirrorFile)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	basePath := flag.String("data-path", "", "Base path for the database and mirror snapshot")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	fallbackWebhook := flag.String("fallback-webhook", "", "Legacy single-tenant webhook URL")
	fallbackMention := flag.String("fallback-mention", "", "Mention target for the legacy webhook")
	fallbackFile := flag.String("fallback-file", "", "Hot-reloaded JSON file overriding the legacy webhook")
	notifyTimeout := flag.String("notify-timeout", "", "Outbound notification timeout (default: 8s)")
	crmEndpoint := flag.String("crm-endpoint", "", "Optional CRM sink endpoint for booking mirroring")

	expiryInterval := flag.String("expiry-interval", "", "Expiry sweep interval (default: 60s)")
	reminderInterval := flag.String("reminder-interval", "", "Reminder dispatch interval (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Store: StoreConfig{
			BasePath:     getConfigValue(*basePath, "DATA_PATH", ""),
			DatabaseFile: getConfigValue("", "DATABASE_FILE", "titlekeep.db"),
			MirrorFile:   getConfigValue("", "MIRROR_FILE", "titles_state.json"),
		},
		Notify: NotifyConfig{
			FallbackWebhookURL: getConfigValue(*fallbackWebhook, "FALLBACK_WEBHOOK_URL", ""),
			FallbackMention:    getConfigValue(*fallbackMention, "FALLBACK_MENTION", ""),
			FallbackFile:       getConfigValue(*fallbackFile, "FALLBACK_FILE", ""),
			CRMEndpoint:        getConfigValue(*crmEndpoint, "CRM_ENDPOINT", ""),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Notify.Timeout, err = parseDurationValue(*notifyTimeout, "NOTIFY_TIMEOUT", "8s"); err != nil {
		return nil, err
	}
	if cfg.Jobs.ExpiryInterval, err = parseDurationValue(*expiryInterval, "EXPIRY_INTERVAL", "60s"); err != nil {
		return nil, err
	}
	if cfg.Jobs.ReminderInterval, err = parseDurationValue(*reminderInterval, "REMINDER_INTERVAL", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandBasePath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.BasePath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Notify.Timeout <= 0 || c.Notify.Timeout > 10*time.Second {
		return fmt.Errorf("notify timeout must be positive and bounded: %s", c.Notify.Timeout)
	}

	if c.Jobs.ExpiryInterval <= 0 || c.Jobs.ReminderInterval <= 0 {
		return errors.New("job intervals must be positive")
	}

	return nil
}

// expandBasePath expands ~ and makes the path absolute.
func (c *Config) expandBasePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "TitleKeep")

	expanded, err := expandPath(c.Store.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.BasePath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// parseDurationValue resolves a duration with flag > env > default precedence.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
