package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWTSecret   string
	// AllowedOrigins is a comma-separated CORS allowlist; empty allows none.
	AllowedOrigins string
	Redis          RedisConfig
	VendorAPI      VendorAPIConfig
	Seller         SellerConfig
	Jobs           JobsConfig
	LogLevel       string
}

type RedisConfig struct {
	// Addr empty disables caching entirely.
	Addr     string
	Password string
	DB       int
}

type VendorAPIConfig struct {
	BaseURL string
	APIKey  string
	// MinInterval paces outbound calls; the partner rate-limits hard.
	MinInterval time.Duration
	Timeout     time.Duration
}

type SellerConfig struct {
	// InvoicePrefix is the seller's own invoice numbering prefix, used to
	// classify remittance detail lines (e.g. "VBE").
	InvoicePrefix string
	// WarehouseCode selects the fulfillment warehouse for stock checks.
	WarehouseCode string
}

type JobsConfig struct {
	PollInterval        time.Duration
	AcknowledgeInterval time.Duration
	SubmitInterval      time.Duration
	RemittanceInterval  time.Duration
	ErpSyncInterval     time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SELLER_INVOICE_PREFIX", "VBE")
	viper.SetDefault("WAREHOUSE_CODE", "MAIN")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine, plain env vars still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:           getEnvOrViper("PORT", "8080"),
		Environment:    getEnvOrViper("ENVIRONMENT", "development"),
		DatabaseURL:    getEnvOrViper("DATABASE_URL", ""),
		JWTSecret:      getEnvOrViper("JWT_SECRET", ""),
		AllowedOrigins: getEnvOrViper("ALLOWED_ORIGINS", ""),
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", ""),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		VendorAPI: VendorAPIConfig{
			BaseURL:     getEnvOrViper("VENDOR_API_BASE_URL", ""),
			APIKey:      getEnvOrViper("VENDOR_API_KEY", ""),
			MinInterval: getDuration("VENDOR_API_MIN_INTERVAL", 500*time.Millisecond),
			Timeout:     getDuration("VENDOR_API_TIMEOUT", 30*time.Second),
		},
		Seller: SellerConfig{
			InvoicePrefix: getEnvOrViper("SELLER_INVOICE_PREFIX", "VBE"),
			WarehouseCode: getEnvOrViper("WAREHOUSE_CODE", "MAIN"),
		},
		Jobs: JobsConfig{
			PollInterval:        getDuration("JOB_POLL_INTERVAL", 15*time.Minute),
			AcknowledgeInterval: getDuration("JOB_ACKNOWLEDGE_INTERVAL", 10*time.Minute),
			SubmitInterval:      getDuration("JOB_SUBMIT_INTERVAL", 30*time.Minute),
			RemittanceInterval:  getDuration("JOB_REMITTANCE_INTERVAL", time.Hour),
			ErpSyncInterval:     getDuration("JOB_ERP_SYNC_INTERVAL", 5*time.Minute),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
