// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds everything the process needs: store selection, daily
// caps, event publishing and the listen address.
type Config struct {
	DBDriver   string `env:"SCORE_DB_DRIVER" envDefault:"sqlite"`
	DBDSN      string `env:"SCORE_DB_DSN"`
	SQLitePath string `env:"SCORE_SQLITE_PATH" envDefault:"score.db"`

	DailyCreditCap  decimal.Decimal `env:"SCORE_DAILY_CREDIT_CAP" envDefault:"300"`
	DailyDebitCap   decimal.Decimal `env:"SCORE_DAILY_DEBIT_CAP" envDefault:"300"`
	EnableCreditCap bool            `env:"SCORE_ENABLE_CREDIT_CAP" envDefault:"true"`
	EnableDebitCap  bool            `env:"SCORE_ENABLE_DEBIT_CAP" envDefault:"true"`

	// Empty broker list disables event publishing.
	KafkaBrokers []string `env:"SCORE_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"SCORE_KAFKA_TOPIC" envDefault:"score_changed"`

	ListenAddr string `env:"SCORE_LISTEN_ADDR" envDefault:":8080"`
}

// Load reads a .env file if one exists in the working directory, then
// parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBDSN == "" {
			return Config{}, fmt.Errorf("SCORE_DB_DSN is required when SCORE_DB_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite, DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown SCORE_DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}
