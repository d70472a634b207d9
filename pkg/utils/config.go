package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr string `env:"SPINSOUL_HTTP_ADDR" env-default:":8080"`
	SyncAddr string `env:"SPINSOUL_SYNC_ADDR" env-default:":7070"`
	DBPath   string `env:"SPINSOUL_DB_PATH"`

	Discogs DiscogsConfig
	Auth    AuthConfig
	Log     LogConfig
}

type DiscogsConfig struct {
	// Token is the personal access token. It is never logged.
	Token     string        `env:"DISCOGS_TOKEN"`
	BaseURL   string        `env:"DISCOGS_BASE_URL" env-default:"https://api.discogs.com"`
	UserAgent string        `env:"DISCOGS_USER_AGENT" env-default:"spinsoul/1.0"`
	Timeout   time.Duration `env:"DISCOGS_TIMEOUT" env-default:"10s"`
	PerPage   int           `env:"DISCOGS_PER_PAGE" env-default:"10"`
}

type AuthConfig struct {
	Enabled     bool          `env:"SPINSOUL_AUTH_ENABLED" env-default:"false"`
	JWTSecret   string        `env:"SPINSOUL_JWT_SECRET" env-default:"dev-secret-change-me"`
	JWTIssuer   string        `env:"SPINSOUL_JWT_ISSUER" env-default:"spinsoul"`
	JWTDuration time.Duration `env:"SPINSOUL_JWT_TTL" env-default:"24h"`
}

type LogConfig struct {
	Level  string `env:"SPINSOUL_LOG_LEVEL" env-default:"info"`
	Pretty bool   `env:"SPINSOUL_LOG_PRETTY" env-default:"false"`
}

// Load reads the config file at path (any format cleanenv understands,
// typically a .env file) and then the process environment. A missing file
// is not an error; the environment and defaults still apply.
func Load(path string) (Config, error) {
	var cfg Config

	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			return cfg, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}
