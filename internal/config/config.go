package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries all process-level settings. Values come from the
// environment with sensible defaults for local development.
type Config struct {
	DatabaseURL    string
	BotStoragePath string

	JWTSecretKey        string
	JWTAlgorithm        string
	JWTAccessExpireMins int

	Host  string
	Port  int
	Debug bool
}

// Load reads configuration from the process environment. Flags bound to
// viper by the CLI override environment values.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "bothive.db")
	v.SetDefault("BOT_STORAGE_PATH", "/var/lib/bots")
	v.SetDefault("JWT_SECRET_KEY", "change-me-in-production")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 1440)
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8000)
	v.SetDefault("DEBUG", false)

	cfg := &Config{
		DatabaseURL:         v.GetString("DATABASE_URL"),
		BotStoragePath:      v.GetString("BOT_STORAGE_PATH"),
		JWTSecretKey:        v.GetString("JWT_SECRET_KEY"),
		JWTAlgorithm:        v.GetString("JWT_ALGORITHM"),
		JWTAccessExpireMins: v.GetInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES"),
		Host:                v.GetString("HOST"),
		Port:                v.GetInt("PORT"),
		Debug:               v.GetBool("DEBUG"),
	}

	// HS256 is the only signing method the token manager supports; reject
	// anything else up front rather than at first login.
	if cfg.JWTAlgorithm != "HS256" {
		return nil, fmt.Errorf("unsupported JWT_ALGORITHM %q, only HS256 is supported", cfg.JWTAlgorithm)
	}

	return cfg, nil
}
