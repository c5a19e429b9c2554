// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ShutdownTimeout    time.Duration

	// Gateway settings
	GatewayBaseURL       string
	GatewayPhoneNumberID string
	GatewayAccessToken   string
	GatewayTimeout       time.Duration
	MessageMaxLength     int
	MessagePartDelay     time.Duration

	// Outbound budgets per window
	RateTextLimit        int
	RateInteractiveLimit int
	RateTemplateLimit    int
	RateWindow           time.Duration

	// Inbound webhook throttle
	WebhookRateLimit  int
	WebhookRateWindow time.Duration

	// Quick replies
	QuickReplyDelay      time.Duration
	HistoryLimit         int
	HistoryMaxRecipients int

	// Reference data
	KnowledgeCorpusPath string
	SpecialtiesPath     string

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	LLMModel        string

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Admin API
	JWTSecret       string
	AdminRateLimit  int
	AdminRateWindow time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Gateway
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://graph.facebook.com/v18.0"),
		GatewayPhoneNumberID: getEnv("GATEWAY_PHONE_NUMBER_ID", ""),
		GatewayAccessToken:   getEnv("GATEWAY_ACCESS_TOKEN", ""),
		GatewayTimeout:       getDurationEnv("GATEWAY_TIMEOUT", 15*time.Second),
		MessageMaxLength:     getIntEnv("MESSAGE_MAX_LENGTH", 4096),
		MessagePartDelay:     getDurationEnv("MESSAGE_PART_DELAY", 500*time.Millisecond),

		// Outbound budgets
		RateTextLimit:        getIntEnv("RATE_TEXT_LIMIT", 80),
		RateInteractiveLimit: getIntEnv("RATE_INTERACTIVE_LIMIT", 20),
		RateTemplateLimit:    getIntEnv("RATE_TEMPLATE_LIMIT", 10),
		RateWindow:           getDurationEnv("RATE_WINDOW", time.Minute),

		// Webhook throttle
		WebhookRateLimit:  getIntEnv("WEBHOOK_RATE_LIMIT", 120),
		WebhookRateWindow: getDurationEnv("WEBHOOK_RATE_WINDOW", time.Minute),

		// Quick replies
		QuickReplyDelay:      getDurationEnv("QUICK_REPLY_DELAY", 1200*time.Millisecond),
		HistoryLimit:         getIntEnv("HISTORY_LIMIT", 8),
		HistoryMaxRecipients: getIntEnv("HISTORY_MAX_RECIPIENTS", 10000),

		// Reference data
		KnowledgeCorpusPath: getEnv("KNOWLEDGE_CORPUS_PATH", "knowledgebase.txt"),
		SpecialtiesPath:     getEnv("SPECIALTIES_PATH", "doctors.json"),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", ""),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Admin API
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AdminRateLimit:  getIntEnv("ADMIN_RATE_LIMIT", 60),
		AdminRateWindow: getDurationEnv("ADMIN_RATE_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.GatewayAccessToken == "" {
		errs = append(errs, errors.New("GATEWAY_ACCESS_TOKEN is required"))
	}
	if c.GatewayPhoneNumberID == "" {
		errs = append(errs, errors.New("GATEWAY_PHONE_NUMBER_ID is required"))
	}
	if c.MessageMaxLength <= 0 {
		errs = append(errs, fmt.Errorf("MESSAGE_MAX_LENGTH must be positive, got %d", c.MessageMaxLength))
	}
	for name, v := range map[string]int{
		"RATE_TEXT_LIMIT":        c.RateTextLimit,
		"RATE_INTERACTIVE_LIMIT": c.RateInteractiveLimit,
		"RATE_TEMPLATE_LIMIT":    c.RateTemplateLimit,
		"WEBHOOK_RATE_LIMIT":     c.WebhookRateLimit,
		"ADMIN_RATE_LIMIT":       c.AdminRateLimit,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	// Rate counters key their windows by whole seconds.
	for name, d := range map[string]time.Duration{
		"RATE_WINDOW":         c.RateWindow,
		"WEBHOOK_RATE_WINDOW": c.WebhookRateWindow,
		"ADMIN_RATE_WINDOW":   c.AdminRateWindow,
	} {
		if d < time.Second {
			errs = append(errs, fmt.Errorf("%s must be at least 1s, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
