package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the service
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	NATS         NATSConfig
	App          AppConfig
	Auth         AuthConfig
	Stripe       StripeConfig
	Subscription SubscriptionConfig
	Jobs         JobsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// AppConfig holds application configuration
type AppConfig struct {
	Environment string
	LogLevel    string
}

// AuthConfig holds identity provider configuration
type AuthConfig struct {
	// WebhookSecret is the Svix-style signing secret ("whsec_..."). When
	// empty, webhook signature verification is skipped (development only).
	WebhookSecret string
}

// StripeConfig holds Stripe configuration
type StripeConfig struct {
	SecretKey       string
	PublishableKey  string
	WebhookSecret   string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

// SubscriptionConfig holds trial defaults
type SubscriptionConfig struct {
	TrialDays          int
	TrialMaxUsers      int
	TrialMaxProducts   int
	TrialMaxOrders     int
	TrialMaxWarehouses int
}

// JobsConfig holds background job intervals
type JobsConfig struct {
	TrialSweepInterval int // minutes between trial expiry sweeps
	LowStockInterval   int // minutes between low stock scans
}

// New creates a new configuration instance
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnvWithDefault("SERVER_HOST", "0.0.0.0"),
			Port: getEnvWithDefault("SERVER_PORT", "8090"),
		},
		Database: DatabaseConfig{
			Host:     getEnvWithDefault("DB_HOST", "localhost"),
			Port:     getEnvWithDefault("DB_PORT", "5432"),
			User:     getEnvWithDefault("DB_USER", "postgres"),
			Password: getEnvWithDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvWithDefault("DB_NAME", "inventory_db"),
			SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnvWithDefault("REDIS_HOST", "localhost"),
			Port:     getEnvWithDefault("REDIS_PORT", "6379"),
			Password: getEnvWithDefault("REDIS_PASSWORD", ""),
			DB:       getEnvAsIntWithDefault("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     getEnvWithDefault("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBoolWithDefault("NATS_ENABLED", true),
		},
		App: AppConfig{
			Environment: getEnvWithDefault("APP_ENV", "development"),
			LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			WebhookSecret: getEnvWithDefault("CLERK_WEBHOOK_SECRET", ""),
		},
		Stripe: StripeConfig{
			SecretKey:       getEnvWithDefault("STRIPE_SECRET_KEY", ""),
			PublishableKey:  getEnvWithDefault("STRIPE_PUBLISHABLE_KEY", ""),
			WebhookSecret:   getEnvWithDefault("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:      getEnvWithDefault("STRIPE_SUCCESS_URL", "http://localhost:3000/billing/success"),
			CancelURL:       getEnvWithDefault("STRIPE_CANCEL_URL", "http://localhost:3000/billing/cancelled"),
			PortalReturnURL: getEnvWithDefault("STRIPE_PORTAL_RETURN_URL", "http://localhost:3000/settings/billing"),
		},
		Subscription: SubscriptionConfig{
			TrialDays:          getEnvAsIntWithDefault("TRIAL_DAYS", 14),
			TrialMaxUsers:      getEnvAsIntWithDefault("TRIAL_MAX_USERS", 3),
			TrialMaxProducts:   getEnvAsIntWithDefault("TRIAL_MAX_PRODUCTS", 50),
			TrialMaxOrders:     getEnvAsIntWithDefault("TRIAL_MAX_ORDERS", 100),
			TrialMaxWarehouses: getEnvAsIntWithDefault("TRIAL_MAX_WAREHOUSES", 1),
		},
		Jobs: JobsConfig{
			TrialSweepInterval: getEnvAsIntWithDefault("TRIAL_SWEEP_INTERVAL_MINS", 60),
			LowStockInterval:   getEnvAsIntWithDefault("LOW_STOCK_INTERVAL_MINS", 1440),
		},
	}
}

// getEnvWithDefault gets environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntWithDefault gets environment variable as integer with default fallback
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolWithDefault gets environment variable as boolean with default fallback
func getEnvAsBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
