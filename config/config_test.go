package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "DB_DRIVER", "REDIS_ADDR", "POINTS_CONNECTION_BASE", "ADMIN_EMAIL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, 10*time.Minute, cfg.JWT.NonceExpiry)

	p := cfg.Points
	assert.Equal(t, int64(10), p.ConnectionBase)
	assert.Equal(t, int64(15), p.QRScanConnection)
	assert.Equal(t, int64(25), p.FirstConnectionBonus)
	assert.Equal(t, int64(100), p.SwapMinimum)
	assert.Equal(t, int64(100), p.ExchangeRate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_ACCESS_EXPIRY", "1h")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("POINTS_CONNECTION_BASE", "12")
	t.Setenv("POINTS_SWAP_MINIMUM", "not-a-number")
	t.Setenv("ADMIN_EMAIL", "Ops@MetaBento.app")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.JWT.AccessExpiry)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, int64(12), cfg.Points.ConnectionBase)
	assert.Equal(t, int64(100), cfg.Points.SwapMinimum, "unparsable values fall back")
	assert.Equal(t, "ops@metabento.app", cfg.Admin.Email)
}
