package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	TokenExpiryM int `env:"TOKEN_EXPIRY_M" envDefault:"60"`

	// First staff account, created at startup if it does not exist.
	// Seeding is skipped when either value is empty.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// ANPR collaborators. Both are opaque HTTP services that may be slow
	// or fail; the settlement core never holds a lock across a call.
	DetectorURL  string `env:"DETECTOR_URL" envDefault:"http://mock-anpr:8081"`
	OCRURL       string `env:"OCR_URL" envDefault:"http://mock-anpr:8081"`
	ANPRTimeoutS int    `env:"ANPR_TIMEOUT_S" envDefault:"15"`

	MediaDir string `env:"MEDIA_DIR" envDefault:"media"`

	// Fee charged per violation, in minor units (50000 = 500.00).
	ViolationFeeMinor int64 `env:"VIOLATION_FEE_MINOR" envDefault:"50000"`

	// Window in which a resubmitted evidence image is treated as the
	// same physical event.
	DedupeWindowS int `env:"DEDUPE_WINDOW_S" envDefault:"300"`

	SettleMaxAttempts int `env:"SETTLE_MAX_ATTEMPTS" envDefault:"3"`
	SettleBackoffMs   int `env:"SETTLE_BACKOFF_MS" envDefault:"25"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
