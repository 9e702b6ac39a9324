package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	CatalogInterval    time.Duration `mapstructure:"catalog_interval" yaml:"catalog_interval"`
	PushTimeout        time.Duration `mapstructure:"push_timeout" yaml:"push_timeout"`
	HistoryLimit       int           `mapstructure:"history_limit" yaml:"history_limit"`
	MaxMessageBytes    int           `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "wirechat.db",
		LogLevel:          "info",

		JWTSecret:   "change-me",
		JWTIssuer:   "wirechat",
		JWTAudience: "wirechat-clients",
		SessionTTL:  7 * 24 * time.Hour,

		PollInterval:       250 * time.Millisecond,
		CatalogInterval:    5 * time.Second,
		PushTimeout:        5 * time.Second,
		HistoryLimit:       50,
		MaxMessageBytes:    4096,
		RateLimitPerMinute: 120,
	}
}

// UpdateFrom overwrites the receiver with every non-zero value of other.
func (c *Config) UpdateFrom(other Config) {
	override(&c.Addr, other.Addr)
	override(&c.ReadHeaderTimeout, other.ReadHeaderTimeout)
	override(&c.ShutdownTimeout, other.ShutdownTimeout)
	override(&c.DatabasePath, other.DatabasePath)
	override(&c.LogLevel, other.LogLevel)

	override(&c.JWTSecret, other.JWTSecret)
	override(&c.JWTIssuer, other.JWTIssuer)
	override(&c.JWTAudience, other.JWTAudience)
	override(&c.SessionTTL, other.SessionTTL)

	override(&c.PollInterval, other.PollInterval)
	override(&c.CatalogInterval, other.CatalogInterval)
	override(&c.PushTimeout, other.PushTimeout)
	override(&c.HistoryLimit, other.HistoryLimit)
	override(&c.MaxMessageBytes, other.MaxMessageBytes)
	override(&c.RateLimitPerMinute, other.RateLimitPerMinute)
}

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
