package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

const minPassphraseLen = 12

var (
	ErrUnknownDriver    = errors.New("unknown STORAGE_DRIVER")
	ErrShortPassphrase  = fmt.Errorf("STATE_PASSPHRASE must be at least %d characters", minPassphraseLen)
	ErrMissingDriverURL = errors.New("storage driver connection setting is missing")
)

type Config struct {
	Env        string
	LogLevel   string
	APIBaseURL string
	// HTTPTimeout bounds each backend request.
	HTTPTimeout time.Duration
	// JWTSecret, when set, makes token decoding verify signatures.
	JWTSecret  string
	ReturnAddr string
	Storage    StorageConfig
	Kafka      KafkaConfig
	Shipping   ShippingConfig

	// Warnings collects problems that were fixed up with defaults. They are
	// logged once the logger exists.
	Warnings []string
}

type StorageConfig struct {
	Driver      string
	Dir         string
	RedisURL    string
	DatabaseURL string
	DynamoTable string
	// Namespace separates several clients sharing one database or table.
	Namespace string
	// Passphrase seals stored values when non-empty.
	Passphrase string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ShippingConfig struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
}

// NewConfig loads .env (if present) and reads the environment.
func NewConfig() (*Config, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		// Walk up to find .env (max 2 parent directories)
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			warnings = append(warnings, ".env file not found, using environment variables and defaults")
		}
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Warnings = append(warnings, cfg.Warnings...)
	return cfg, nil
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "dev"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		APIBaseURL:  getEnv("API_BASE_URL", ""),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 15*time.Second),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		ReturnAddr:  getEnv("RETURN_ADDR", "127.0.0.1:5173"),
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", DriverFile)),
			Dir:         getEnv("STORAGE_DIR", defaultStorageDir()),
			RedisURL:    getEnv("REDIS_URL", ""),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			DynamoTable: getEnv("DYNAMODB_TABLE", "caprieux-client-state"),
			Namespace:   getEnv("STORAGE_NAMESPACE", "default"),
			Passphrase:  getEnv("STATE_PASSPHRASE", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "storefront-events"),
		},
		Shipping: ShippingConfig{
			FreeShippingThreshold: getEnvInt64("FREE_SHIPPING_THRESHOLD", 500000),
			FlatShippingFee:       getEnvInt64("FLAT_SHIPPING_FEE", 30000),
		},
	}

	// Validate env
	if cfg.Env != "dev" && cfg.Env != "prod" {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid ENV %q, using default: prod", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid LOG_LEVEL %q, using default: info", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}

	if cfg.Shipping.FreeShippingThreshold < 0 || cfg.Shipping.FlatShippingFee < 0 {
		return nil, errors.New("shipping amounts must not be negative")
	}

	return cfg, nil
}

func (s StorageConfig) validate() error {
	if s.Passphrase != "" && len(s.Passphrase) < minPassphraseLen {
		return ErrShortPassphrase
	}
	switch s.Driver {
	case DriverFile, DriverMemory, DriverDynamoDB:
		return nil
	case DriverRedis:
		if s.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL", ErrMissingDriverURL)
		}
		return nil
	case DriverPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingDriverURL)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
}

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "caprieux")
	}
	return ".caprieux"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := getEnv(key, ""); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := getEnv(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
