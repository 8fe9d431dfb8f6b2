package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Load loads the configuration from file and environment. The config
// file is optional: every setting has a default and the deployment
// contract is environment-first (TEMPO_LIMITE and friends).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tjpr-consulta"))
		}
		v.AddConfigPath("/etc/tjpr-consulta/")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
			// No file found: defaults plus environment apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.name", "monitoramento-processual-tjpr")

	v.SetDefault("portal.base_url", "https://consulta.tjpr.jus.br")
	v.SetDefault("portal.timeout_seconds", 180)

	v.SetDefault("retry.max_captcha_attempts", 30)
	v.SetDefault("retry.max_query_attempts", 30)

	v.SetDefault("server.listen", ":8000")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// bindEnv wires the environment variable names the deployment contract
// has always used.
func bindEnv(v *viper.Viper) {
	v.BindEnv("bot.name", "BOT_NAME")
	v.BindEnv("portal.timeout_seconds", "TEMPO_LIMITE")
	v.BindEnv("retry.max_captcha_attempts", "TENTATIVAS_MAXIMAS_CAPTCHA")
	v.BindEnv("retry.max_query_attempts", "TENTATIVAS_MAXIMAS_RECURSIVAS")
	v.BindEnv("logging.level", "LOG_LEVEL")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if cfg.Portal.TimeoutSeconds <= 0 {
		return fmt.Errorf("portal.timeout_seconds must be positive, got %d", cfg.Portal.TimeoutSeconds)
	}
	if cfg.Retry.MaxCaptchaAttempts <= 0 {
		return fmt.Errorf("retry.max_captcha_attempts must be positive, got %d", cfg.Retry.MaxCaptchaAttempts)
	}
	if cfg.Retry.MaxQueryAttempts <= 0 {
		return fmt.Errorf("retry.max_query_attempts must be positive, got %d", cfg.Retry.MaxQueryAttempts)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
