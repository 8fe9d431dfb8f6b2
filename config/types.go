package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Bot     BotConfig     `mapstructure:"bot"`
	Portal  PortalConfig  `mapstructure:"portal"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BotConfig identifies this bot instance in logs.
type BotConfig struct {
	Name string `mapstructure:"name"`
}

// PortalConfig holds the Projudi portal connection details.
type PortalConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// TimeoutSeconds bounds each individual portal call (TEMPO_LIMITE).
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-call deadline as a duration.
func (p PortalConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RetryConfig bounds the two independent attempt budgets.
type RetryConfig struct {
	// MaxCaptchaAttempts is TENTATIVAS_MAXIMAS_CAPTCHA.
	MaxCaptchaAttempts int `mapstructure:"max_captcha_attempts"`
	// MaxQueryAttempts is TENTATIVAS_MAXIMAS_RECURSIVAS.
	MaxQueryAttempts int `mapstructure:"max_query_attempts"`
}

// ServerConfig holds the REST listener settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
