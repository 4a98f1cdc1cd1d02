package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYROLL_OTHER_DEDUCTIONS", "")
	t.Setenv("BULK_WORKERS", "")
	t.Setenv("STORE_TIMEOUT", "")
	t.Setenv("LABOR_RECALC_INTERVAL", "")

	cfg := Load()
	assert.True(t, cfg.OtherDeductions.Equal(decimal.NewFromInt(175)))
	assert.Equal(t, 4, cfg.BulkWorkers)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Zero(t, cfg.LaborRecalcInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYROLL_OTHER_DEDUCTIONS", "200.50")
	t.Setenv("BULK_WORKERS", "8")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("RUN_RATE_LIMIT", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()
	assert.Equal(t, "200.5", cfg.OtherDeductions.String())
	assert.Equal(t, 8, cfg.BulkWorkers)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 0, cfg.RunRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PAYROLL_OTHER_DEDUCTIONS", "lots")
	t.Setenv("BULK_WORKERS", "many")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg := Load()
	assert.True(t, cfg.OtherDeductions.Equal(decimal.NewFromInt(175)))
	assert.Equal(t, 4, cfg.BulkWorkers)
	assert.True(t, cfg.MetricsEnabled)
}

func validConfig() Config {
	return Config{
		DatabaseURL:     "postgres://localhost/nomina",
		Environment:     "development",
		MaxBodyBytes:    1 << 20,
		BulkWorkers:     4,
		StoreTimeout:    time.Second,
		DBMaxConns:      5,
		OtherDeductions: decimal.NewFromInt(175),
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }},
		{"zero workers", func(c *Config) { c.BulkWorkers = 0 }},
		{"zero timeout", func(c *Config) { c.StoreTimeout = 0 }},
		{"negative deductions", func(c *Config) { c.OtherDeductions = decimal.NewFromInt(-1) }},
		{"tiny body limit", func(c *Config) { c.MaxBodyBytes = 10 }},
		{"production without secret", func(c *Config) { c.Environment = "production" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
