package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// SendTimeout bounds a single send to one recipient during a broadcast.
	SendTimeout        time.Duration `mapstructure:"send_timeout" yaml:"send_timeout"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	TrustForwardedFor bool `mapstructure:"trust_forwarded_for" yaml:"trust_forwarded_for"`
	// TrustedProxies lists the CIDRs or addresses allowed to set forwarding headers.
	// Empty with TrustForwardedFor means any peer.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`

	// DatabasePath enables the session journal when non-empty.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	WelcomeText  string `mapstructure:"welcome_text" yaml:"welcome_text"`
	EvictionText string `mapstructure:"eviction_text" yaml:"eviction_text"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		SendTimeout:        2 * time.Second,
		MaxMessageBytes:    64 << 10,
		RateLimitPerMinute: 0,
		TrustForwardedFor:  false,
		AllowedOrigins:     []string{"*"},
		DatabasePath:       "",
		WelcomeText:        "connected",
		EvictionText:       "another connection from your address has replaced this session",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.SendTimeout != 0 {
		c.SendTimeout = other.SendTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.TrustForwardedFor {
		c.TrustForwardedFor = true
	}
	if len(other.TrustedProxies) > 0 {
		c.TrustedProxies = other.TrustedProxies
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.WelcomeText != "" {
		c.WelcomeText = other.WelcomeText
	}
	if other.EvictionText != "" {
		c.EvictionText = other.EvictionText
	}
}
