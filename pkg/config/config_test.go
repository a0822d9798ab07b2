package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.False(t, cfg.CulqiEnabled)
	assert.Equal(t, "https://api.culqi.com/v2", cfg.CulqiBaseURL)
	assert.Equal(t, 10*time.Minute, cfg.PaymentSweepAfter)
	assert.Equal(t, 5*time.Minute, cfg.PaymentSweepInterval)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "25")
	t.Setenv("PAYMENT_SWEEP_AFTER", "30m")
	t.Setenv("CULQI_ENABLED", "true")

	cfg := LoadConfig()

	assert.Equal(t, 25, cfg.LowStockThreshold)
	assert.Equal(t, 30*time.Minute, cfg.PaymentSweepAfter)
	assert.True(t, cfg.CulqiEnabled)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "plenty")
	t.Setenv("PAYMENT_SWEEP_AFTER", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, 10*time.Minute, cfg.PaymentSweepAfter)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.internal",
		DBPort:     "3306",
		DBUser:     "shop",
		DBPassword: "secret",
		DBName:     "yorusito",
	}
	assert.Equal(t, "shop:secret@tcp(db.internal:3306)/yorusito?parseTime=true&charset=utf8mb4", cfg.GetDSN())
}

func TestCulqiConfigured(t *testing.T) {
	cfg := &Config{CulqiPublicKey: "pk", CulqiSecretKey: "sk"}
	assert.True(t, cfg.CulqiConfigured())

	cfg.CulqiSecretKey = ""
	assert.False(t, cfg.CulqiConfigured())
}
