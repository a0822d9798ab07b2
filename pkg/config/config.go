package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	AppPort string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Inventory
	LowStockThreshold int

	// Payment gateway (Culqi). When CulqiEnabled is false the simulated
	// gateway is wired in at startup instead.
	CulqiEnabled   bool
	CulqiPublicKey string
	CulqiSecretKey string
	CulqiBaseURL   string

	// Payment sweep
	PaymentSweepAfter    time.Duration
	PaymentSweepInterval time.Duration

	// OpenTelemetry
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPHeaders   string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELServiceVersion        string
	OTELDeploymentEnvironment string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	return &Config{
		// Application
		AppPort: getEnv("APP_PORT", "8080"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "yorusito"),

		// Inventory
		LowStockThreshold: getEnvInt("LOW_STOCK_THRESHOLD", 10),

		// Payment gateway
		CulqiEnabled:   getEnvBool("CULQI_ENABLED", false),
		CulqiPublicKey: getEnv("CULQI_PUBLIC_KEY", ""),
		CulqiSecretKey: getEnv("CULQI_SECRET_KEY", ""),
		CulqiBaseURL:   getEnv("CULQI_BASE_URL", "https://api.culqi.com/v2"),

		// Payment sweep
		PaymentSweepAfter:    getEnvDuration("PAYMENT_SWEEP_AFTER", 10*time.Minute),
		PaymentSweepInterval: getEnvDuration("PAYMENT_SWEEP_INTERVAL", 5*time.Minute),

		// OpenTelemetry
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OTELExporterOTLPHeaders:   getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "yorusito-shop-backend"),
		OTELServiceVersion:        getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		OTELDeploymentEnvironment: getEnv("OTEL_DEPLOYMENT_ENVIRONMENT", "development"),
	}
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&charset=utf8mb4"
}

// CulqiConfigured reports whether both gateway API keys are present.
func (c *Config) CulqiConfigured() bool {
	return c.CulqiPublicKey != "" && c.CulqiSecretKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid value for %s: %q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("Warning: invalid value for %s: %q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}
