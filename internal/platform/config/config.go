package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Addr                string
	Environment         string
	LogLevel            string
	LogFormat           string
	DatabaseURL         string
	DBMaxConns          int
	JWTSecret           string
	DataEncryptionKey   string
	RunMigrations       bool
	MigrationsDir       string
	RunSeed             bool
	SeedTenantName      string
	SeedAdminEmail      string
	SeedAdminPassword   string
	MaxBodyBytes        int64
	CORSAllowedOrigins  []string
	OtherDeductions     decimal.Decimal
	BulkWorkers         int
	StoreTimeout        time.Duration
	LaborRecalcInterval time.Duration
	RunRateLimit        int
	MetricsEnabled      bool
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                getEnv("APP_ADDR", ":8080"),
		Environment:         getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		DataEncryptionKey:   getEnv("DATA_ENCRYPTION_KEY", ""),
		RunMigrations:       getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:       getEnv("MIGRATIONS_DIR", "migrations"),
		RunSeed:             getEnvBool("RUN_SEED", true),
		SeedTenantName:      getEnv("SEED_TENANT_NAME", "Default Tenant"),
		SeedAdminEmail:      getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:   getEnv("SEED_ADMIN_PASSWORD", ""),
		MaxBodyBytes:        int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		OtherDeductions:     getEnvDecimal("PAYROLL_OTHER_DEDUCTIONS", decimal.NewFromInt(175)),
		BulkWorkers:         getEnvInt("BULK_WORKERS", 4),
		StoreTimeout:        getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		LaborRecalcInterval: getEnvDuration("LABOR_RECALC_INTERVAL", 0),
		RunRateLimit:        getEnvInt("RUN_RATE_LIMIT", 30),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.BulkWorkers <= 0 {
		return fmt.Errorf("BULK_WORKERS must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.OtherDeductions.IsNegative() {
		return fmt.Errorf("PAYROLL_OTHER_DEDUCTIONS must not be negative")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	return nil
}
