package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(100), cfg.WelcomeBonusCredits)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.NewsCacheTTL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GATEWAY_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("WELCOME_BONUS_CREDITS", "250")
	t.Setenv("JWT_ACCESS_EXPIRY", "2h")

	cfg := Load()

	assert.Equal(t, "whsec_test", cfg.GatewayWebhookSecret)
	assert.Equal(t, int64(250), cfg.WelcomeBonusCredits)
	assert.Equal(t, 2*time.Hour, cfg.JWTAccessExpiry)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("WELCOME_BONUS_CREDITS", "not-a-number")
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")

	cfg := Load()

	assert.Equal(t, int64(100), cfg.WelcomeBonusCredits)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
}

func TestDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "stocxer")

	cfg := Load()
	want := "host=db.internal user=svc password=pw dbname=stocxer port=5432 sslmode=disable TimeZone=UTC"
	assert.Equal(t, want, cfg.DSN())
}

func TestRedisAddr(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg := Load()
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
