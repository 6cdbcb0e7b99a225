// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for the service.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is
	// supported.
	Version string `yaml:"version"`

	Server   ServerConfig   `yaml:"server"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Provider ProviderConfig `yaml:"provider"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Engine   EngineConfig   `yaml:"engine"`
	Commerce CommerceConfig `yaml:"commerce"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	VerifyToken string `yaml:"verify_token"`
	AppSecret   string `yaml:"app_secret"`
}

// WhatsAppConfig configures the Graph API send client and the soft
// outbound rate limit.
type WhatsAppConfig struct {
	Token         string        `yaml:"token"`
	PhoneNumberID string        `yaml:"phone_number_id"`
	BaseURL       string        `yaml:"base_url,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	SendLimit     int           `yaml:"send_limit,omitempty"`
}

// ProviderConfig configures the language model client. An empty APIKey
// disables the model; classification then runs deterministically and
// replies come from templates.
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	MaxTokens   int           `yaml:"max_tokens,omitempty"`
	Temperature float64       `yaml:"temperature,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// StoreConfig configures the durable store.
type StoreConfig struct {
	Path string `yaml:"path"`

	// DeliveryRetention bounds how long webhook delivery ids are kept
	// for replay detection.
	DeliveryRetention time.Duration `yaml:"delivery_retention,omitempty"`
}

// CacheConfig configures the in-process conversation caches.
type CacheConfig struct {
	TTL          time.Duration `yaml:"ttl,omitempty"`
	HistoryLimit int           `yaml:"history_limit,omitempty"`
}

// SessionConfig tunes session lifecycle housekeeping.
type SessionConfig struct {
	// AbandonAfter is how long a session may sit untouched before the
	// abandonment job closes it out. Zero uses the job default.
	AbandonAfter time.Duration `yaml:"abandon_after,omitempty"`
}

// EngineConfig configures the turn engine.
type EngineConfig struct {
	Workers         int           `yaml:"workers,omitempty"`
	InboxSize       int           `yaml:"inbox_size,omitempty"`
	TurnTimeout     time.Duration `yaml:"turn_timeout,omitempty"`
	DefaultLanguage string        `yaml:"default_language,omitempty"`
}

// CommerceConfig identifies the storefront the service fronts.
type CommerceConfig struct {
	SellerID string `yaml:"seller_id"`

	// CatalogPath seeds the in-memory commerce backend from a YAML
	// catalog file. Empty means an empty catalog.
	CatalogPath string `yaml:"catalog_path,omitempty"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text or json
}

// TracingConfig configures the OTLP trace exporter. An empty endpoint
// disables export.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}
