package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "score.db", cfg.SQLitePath)
	assert.True(t, cfg.DailyCreditCap.Equal(decimal.NewFromInt(300)))
	assert.True(t, cfg.EnableCreditCap)
	assert.True(t, cfg.EnableDebitCap)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCORE_DB_DRIVER", "memory")
	t.Setenv("SCORE_DAILY_CREDIT_CAP", "42.50")
	t.Setenv("SCORE_ENABLE_DEBIT_CAP", "false")
	t.Setenv("SCORE_KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.True(t, cfg.DailyCreditCap.Equal(decimal.RequireFromString("42.50")))
	assert.False(t, cfg.EnableDebitCap)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("SCORE_DB_DRIVER", "postgres")
	t.Setenv("SCORE_DB_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("SCORE_DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}
