package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCRMURL     = "https://lawtask.pro/API/api.php"
	DefaultCRMTimeout = 4 * time.Second
	DefaultSituation  = "Нет описания проблемы лида"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// CRM upstream
	CRMURL     string
	CRMTimeout time.Duration

	// Values injected into webhook leads that omit them
	IntegrationID    string
	IntegrationCity  string
	DefaultSituation string

	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CRMURL:             strings.TrimSpace(getEnv("CRM_URL", DefaultCRMURL)),
		CRMTimeout:         getEnvAsDuration("CRM_TIMEOUT", DefaultCRMTimeout),
		IntegrationID:      strings.TrimSpace(getEnv("INTEGRATION_ID", "")),
		IntegrationCity:    strings.TrimSpace(getEnv("INTEGRATION_CITY", "")),
		DefaultSituation:   getEnv("DEFAULT_SITUATION", DefaultSituation),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeout:    getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout:   getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		HTTPIdleTimeout:    getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.CRMURL == "" {
		return errors.New("config: CRM_URL is required")
	}
	u, err := url.Parse(c.CRMURL)
	if err != nil {
		return fmt.Errorf("config: invalid CRM_URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("config: CRM_URL must be absolute, got %q", c.CRMURL)
	}
	if c.CRMTimeout <= 0 {
		return errors.New("config: CRM_TIMEOUT must be positive")
	}
	serverTimeouts := []struct {
		name string
		d    time.Duration
	}{
		{"HTTP_READ_TIMEOUT", c.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", c.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", c.HTTPIdleTimeout},
	}
	for _, st := range serverTimeouts {
		if st.d <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", st.name, st.d)
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	// bare integers are seconds
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
