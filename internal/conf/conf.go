package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/elliehq/issue-relay/internal/biz/usecase"
)

// Platform identifiers
const (
	PlatformTelegram = "telegram"
	PlatformFeishu   = "feishu"
)

// Config represents application configuration
type Config struct {
	// Platform selects the chat platform adapter
	Platform string

	// Telegram configuration
	Telegram TelegramConfig

	// Feishu configuration
	Feishu FeishuConfig

	// Webhook configuration
	Webhook WebhookConfig

	// Access configuration
	Access AccessConfig

	// Context assembly configuration
	Context ContextConfig

	// Rate limit configuration
	RateLimit RateLimitConfig

	// Store configuration
	Store StoreConfig

	// OpenAI configuration (optional pre-analysis)
	OpenAI OpenAIConfig
}

// TelegramConfig contains Telegram credentials
type TelegramConfig struct {
	BotToken string
}

// FeishuConfig contains Feishu credentials
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// WebhookConfig contains the automation service endpoint
type WebhookConfig struct {
	URL    string
	Secret string
}

// AccessConfig contains the whitelists and the trigger emoji set
type AccessConfig struct {
	Chats         []string
	Users         []string
	TriggerEmojis []string
}

// ContextConfig contains context assembly settings
type ContextConfig struct {
	MaxMessages   int
	MinMessageLen int
	Anonymize     bool
}

// RateLimitConfig contains rate limiter settings
type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
}

// StoreConfig contains the processed-event store settings
type StoreConfig struct {
	DBPath string
}

// OpenAIConfig contains optional analyzer settings
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	platform := os.Getenv("PLATFORM")
	if platform == "" {
		platform = PlatformTelegram
	}

	dbPath := os.Getenv("STORE_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".issue-relay", "relay.db")
	}

	emojis := parseList(os.Getenv("TRIGGER_EMOJIS"))
	if len(emojis) == 0 {
		emojis = []string{"👍"}
	}

	return &Config{
		Platform: platform,
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("WEBHOOK_URL"),
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		Access: AccessConfig{
			Chats:         parseList(os.Getenv("WHITELISTED_CHATS")),
			Users:         parseList(os.Getenv("WHITELISTED_USERS")),
			TriggerEmojis: emojis,
		},
		Context: ContextConfig{
			MaxMessages:   intEnv("MAX_CONTEXT_MESSAGES", 25),
			MinMessageLen: intEnv("MIN_MESSAGE_LENGTH", 10),
			Anonymize:     boolEnv("ANONYMIZE_SENDERS", true),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   intEnv("RATE_LIMIT_REQUESTS", 5),
			WindowSeconds: intEnv("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Store: StoreConfig{
			DBPath: dbPath,
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("OPENAI_MODEL"),
		},
	}
}

func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.EqualFold(val, "true")
	}
	return fallback
}

// ToBufferConfig converts to buffer configuration
func (c *Config) ToBufferConfig() usecase.BufferConfig {
	return usecase.BufferConfig{
		Capacity:      c.Context.MaxMessages,
		MinMessageLen: c.Context.MinMessageLen,
	}
}

// ToRateLimitConfig converts to rate limiter configuration
func (c *Config) ToRateLimitConfig() usecase.RateLimitConfig {
	return usecase.RateLimitConfig{
		MaxRequests: c.RateLimit.MaxRequests,
		Window:      time.Duration(c.RateLimit.WindowSeconds) * time.Second,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Access.Chats) == 0 {
		return &ConfigError{Field: "WHITELISTED_CHATS", Message: "required"}
	}
	if len(c.Access.Users) == 0 {
		return &ConfigError{Field: "WHITELISTED_USERS", Message: "required"}
	}
	if c.Webhook.URL == "" {
		return &ConfigError{Field: "WEBHOOK_URL", Message: "required"}
	}
	if c.Webhook.Secret == "" {
		return &ConfigError{Field: "WEBHOOK_SECRET", Message: "required"}
	}
	switch c.Platform {
	case PlatformTelegram:
		if c.Telegram.BotToken == "" {
			return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "required"}
		}
	case PlatformFeishu:
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
		}
	default:
		return &ConfigError{Field: "PLATFORM", Message: "must be telegram or feishu"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
