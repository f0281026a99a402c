package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"feedesk/internal/messages"
	"feedesk/internal/view"
)

// Backend names accepted by API_BACKEND.
const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

// MinSessionSecretLength is the shortest SESSION_SECRET accepted.
const MinSessionSecretLength = 32

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Backend API
	APIBaseURL string
	APIBackend string
	APITimeout time.Duration

	// View
	UILocale    string
	UITabs      []string
	DefaultTab  string
	StalePolicy string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration
	MaxSessions   int

	// AMQP, optional
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		APIBackend: getEnv("API_BACKEND", BackendRemote),
		APITimeout: getEnvDuration("API_TIMEOUT", 0),

		UILocale:    getEnv("UI_LOCALE", "zh-TW"),
		UITabs:      getEnvList("UI_TABS", view.DefaultTabs),
		DefaultTab:  getEnv("DEFAULT_TAB", view.TabTotals),
		StalePolicy: getEnv("STALE_RESPONSE_POLICY", string(view.StaleDiscard)),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions:   getEnvInt("MAX_SESSIONS", 1000),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "feedesk"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "member.changed"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{BackendRemote, BackendMemory}
	if !slices.Contains(validBackends, c.APIBackend) {
		errors = append(errors, fmt.Sprintf("invalid API backend '%s': must be one of %v", c.APIBackend, validBackends))
	}

	if c.APIBackend == BackendRemote {
		if c.APIBaseURL == "" {
			errors = append(errors, "API base URL is required when using the remote backend")
		} else if u, err := url.Parse(c.APIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		} else if u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': missing host", c.APIBaseURL))
		}
	}

	if c.APITimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must not be negative", c.APITimeout))
	}

	if _, err := messages.New(c.UILocale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid UI locale '%s': %v", c.UILocale, err))
	}

	if len(c.UITabs) == 0 {
		errors = append(errors, "UI tabs cannot be empty")
	}
	seen := make(map[string]bool, len(c.UITabs))
	for _, tab := range c.UITabs {
		if !slices.Contains(view.DefaultTabs, tab) {
			errors = append(errors, fmt.Sprintf("unknown tab '%s': must be one of %v", tab, view.DefaultTabs))
		}
		if seen[tab] {
			errors = append(errors, fmt.Sprintf("duplicate tab '%s'", tab))
		}
		seen[tab] = true
	}
	if len(c.UITabs) > 0 && !seen[c.DefaultTab] {
		errors = append(errors, fmt.Sprintf("default tab '%s' is not one of the UI tabs %v", c.DefaultTab, c.UITabs))
	}

	if _, err := view.ParseStalePolicy(c.StalePolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid stale response policy: %v", err))
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < MinSessionSecretLength {
		errors = append(errors, fmt.Sprintf("session secret too short: must be at least %d bytes", MinSessionSecretLength))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 7 days", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	} else if c.MaxSessions > 100000 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at most 100000", c.MaxSessions))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// EventsEnabled reports whether member changes are published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
