package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Krib"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"krib"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Server struct {
		Timeout     time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		CORSOrigins []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	}

	Auth struct {
		// JWTSecret verifies tokens minted by the upstream auth service.
		// Claims are trusted once the signature checks out.
		JWTSecret string `envconfig:"JWT_SECRET"`

		// CallbackSecret authenticates the payment processor's transfer
		// callbacks and the webhook dispatcher's delivery reports. Left
		// empty, those endpoints reject every call.
		CallbackSecret string `envconfig:"CALLBACK_SECRET"`
	}

	Fees struct {
		// Basis points: 1500 = 15.00%.
		PlatformBPS          int64 `envconfig:"PLATFORM_FEE_BPS" default:"1500"`
		ProcessingBPS        int64 `envconfig:"PROCESSING_FEE_BPS" default:"290"`
		ProcessingFixedCents int64 `envconfig:"PROCESSING_FEE_FIXED_CENTS" default:"30"`
	}

	Payouts struct {
		HoldPeriodDays     int    `envconfig:"PAYOUT_HOLD_PERIOD_DAYS" default:"7"`
		MinimumAmountCents int64  `envconfig:"PAYOUT_MINIMUM_CENTS" default:"2500"`
		Frequency          string `envconfig:"PAYOUT_FREQUENCY" default:"weekly"`
		Schedule           string `envconfig:"PAYOUT_SCHEDULE" default:"0 6 * * *"`
	}

	Webhooks struct {
		FailureThreshold int `envconfig:"WEBHOOK_FAILURE_THRESHOLD" default:"5"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
