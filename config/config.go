// config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds runtime knobs only. Entry fee, fee split and identities are
// compiled into the ledger package and cannot be overridden here.
type Config struct {
	ListenAddr     string   `env:"LISTEN_ADDR" envDefault:":5200"`
	DatabaseURL    string   `env:"DATABASE_URL,required,notEmpty"`
	GatewayToken   string   `env:"GAME_SERVICE_TOKEN,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Log Log

	// Wallet funding feed. Polling is off when SyncServiceURL is empty.
	SyncServiceURL   string        `env:"SYNC_SERVICE_URL"`
	FundingPollEvery time.Duration `env:"FUNDING_POLL_INTERVAL" envDefault:"10s"`

	ReconcileEvery time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`

	// Pot updates are also published to Redis when set.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Archive Archive
}

type Log struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding    string `env:"LOG_ENCODING" envDefault:"json"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Archive is the R2 bucket that keeps settlement proofs.
type Archive struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

func (a Archive) Enabled() bool {
	return a.Bucket != "" && a.AccountID != ""
}

// Load reads .env when present, then the process environment.
func Load(files ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	if cfg.FundingPollEvery <= 0 {
		return nil, fmt.Errorf("FUNDING_POLL_INTERVAL must be positive, got %s", cfg.FundingPollEvery)
	}
	if cfg.ReconcileEvery <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", cfg.ReconcileEvery)
	}
	return &cfg, nil
}
