package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	DocIntel DocIntelConfig
	Registry RegistryConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StorageConfig holds on-disk locations for uploaded bills
type StorageConfig struct {
	BillsDir string
}

// DocIntelConfig holds the document-intelligence (invoice extraction) service configuration
type DocIntelConfig struct {
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
}

// RegistryConfig holds the external GSTIN registry configuration.
// When Endpoint is empty the external check is simply not performed.
type RegistryConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// EngineConfig holds assessment thresholds
type EngineConfig struct {
	MoneyTolerance     float64 // absolute currency units for arithmetic checks
	NameMatchThreshold float64 // similarity ratio at which vendor/registry names match
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", "file:bill-verifier.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			BillsDir: getEnv("BILLS_DIR", "storage/bills"),
		},
		DocIntel: DocIntelConfig{
			Endpoint:     getEnv("DOCUMENT_INTELLIGENCE_ENDPOINT", ""),
			APIKey:       getEnv("DOCUMENT_INTELLIGENCE_KEY", ""),
			Timeout:      getEnvAsDuration("DOCUMENT_INTELLIGENCE_TIMEOUT", 90*time.Second),
			PollInterval: getEnvAsDuration("DOCUMENT_INTELLIGENCE_POLL_INTERVAL", 2*time.Second),
		},
		Registry: RegistryConfig{
			Endpoint: getEnv("GSTIN_ENDPOINT", ""),
			APIKey:   getEnv("GSTIN_KEY", ""),
			Timeout:  getEnvAsDuration("GSTIN_TIMEOUT", 5*time.Second),
		},
		Engine: EngineConfig{
			MoneyTolerance:     getEnvAsFloat("ENGINE_MONEY_TOLERANCE", 1.0),
			NameMatchThreshold: getEnvAsFloat("ENGINE_NAME_MATCH_THRESHOLD", 0.70),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt32(key string, fallback int32) int32 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int32(n)
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
