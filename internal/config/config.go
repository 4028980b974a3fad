package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Payment providers
const (
	ProviderFake     = "fake"
	ProviderRazorpay = "razorpay"
)

// Config holds all configuration for the application.
// Values come from an optional YAML file named by CONFIG_FILE; environment
// variables override the file.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	Payment  PaymentConfig `yaml:"payment"`
	Store    StoreConfig   `yaml:"store"`
	Pricing  PricingConfig `yaml:"pricing"`
	Seed     SeedConfig    `yaml:"seed"`
	CORS     CORSConfig    `yaml:"cors"`
	LogLevel string        `yaml:"logLevel"`
	Version  string        `yaml:"version"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type PaymentConfig struct {
	Provider      string        `yaml:"provider"`
	KeyID         string        `yaml:"keyId"`
	KeySecret     string        `yaml:"keySecret"`
	WebhookSecret string        `yaml:"webhookSecret"`
	Currency      string        `yaml:"currency"`
	BaseURL       string        `yaml:"baseUrl"`
	Timeout       time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Driver         string        `yaml:"driver"`
	MongoURI       string        `yaml:"mongoUri"`
	MongoDatabase  string        `yaml:"mongoDatabase"`
	PostgresDSN    string        `yaml:"postgresDsn"`
	MaxOpenConns   int           `yaml:"maxOpenConns"`
	MaxIdleConns   int           `yaml:"maxIdleConns"`
	ConnLifetime   time.Duration `yaml:"connLifetime"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

type PricingConfig struct {
	TaxRate               float64 `yaml:"taxRate"`
	DeliveryFee           int64   `yaml:"deliveryFee"`
	FreeDeliveryThreshold int64   `yaml:"freeDeliveryThreshold"`
}

// SeedConfig names JSON documents, local paths or URLs, optionally
// gzip-compressed, loaded into the store at startup
type SeedConfig struct {
	Menu        string   `yaml:"menu"`
	Coupons     []string `yaml:"coupons"`
	Users       string   `yaml:"users"`
	DefaultMenu bool     `yaml:"defaultMenu"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Payment: PaymentConfig{
			Provider: ProviderFake,
			Currency: "INR",
			BaseURL:  "https://api.razorpay.com",
			Timeout:  10 * time.Second,
		},
		Store: StoreConfig{
			Driver:         DriverMemory,
			MongoDatabase:  "food_ordering",
			MaxOpenConns:   25,
			MaxIdleConns:   5,
			ConnLifetime:   5 * time.Minute,
			ConnectTimeout: 10 * time.Second,
		},
		Pricing: PricingConfig{
			TaxRate:               0.05,
			DeliveryFee:           50,
			FreeDeliveryThreshold: 400,
		},
		Seed:     SeedConfig{DefaultMenu: true},
		CORS:     CORSConfig{AllowedOrigins: []string{"*"}},
		LogLevel: "info",
		Version:  "dev",
	}
}

// Load reads configuration from CONFIG_FILE, when set, and the environment
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)

	c.Payment.Provider = strings.ToLower(getEnv("PAYMENT_PROVIDER", c.Payment.Provider))
	c.Payment.KeyID = getEnv("RAZORPAY_KEY_ID", c.Payment.KeyID)
	c.Payment.KeySecret = getEnv("RAZORPAY_KEY_SECRET", c.Payment.KeySecret)
	c.Payment.WebhookSecret = getEnv("RAZORPAY_WEBHOOK_SECRET", c.Payment.WebhookSecret)
	c.Payment.Currency = getEnv("PAYMENT_CURRENCY", c.Payment.Currency)
	c.Payment.BaseURL = getEnv("RAZORPAY_BASE_URL", c.Payment.BaseURL)
	c.Payment.Timeout = getEnvAsDuration("PAYMENT_TIMEOUT", c.Payment.Timeout)

	c.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", c.Store.Driver))
	c.Store.MongoURI = getEnv("MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = getEnv("MONGO_DATABASE", c.Store.MongoDatabase)
	c.Store.PostgresDSN = getEnv("DATABASE_URL", c.Store.PostgresDSN)
	c.Store.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Store.MaxOpenConns)
	c.Store.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", c.Store.MaxIdleConns)

	c.Pricing.TaxRate = getEnvAsFloat("TAX_RATE", c.Pricing.TaxRate)
	c.Pricing.DeliveryFee = int64(getEnvAsInt("DELIVERY_FEE", int(c.Pricing.DeliveryFee)))
	c.Pricing.FreeDeliveryThreshold = int64(getEnvAsInt("FREE_DELIVERY_THRESHOLD", int(c.Pricing.FreeDeliveryThreshold)))

	c.Seed.Menu = getEnv("SEED_MENU", c.Seed.Menu)
	c.Seed.Coupons = getEnvAsSlice("SEED_COUPONS", c.Seed.Coupons)
	c.Seed.Users = getEnv("SEED_USERS", c.Seed.Users)
	c.Seed.DefaultMenu = getEnvAsBool("SEED_DEFAULT_MENU", c.Seed.DefaultMenu)

	c.CORS.AllowedOrigins = getEnvAsSlice("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Version = getEnv("APP_VERSION", c.Version)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.Payment.Provider {
	case ProviderFake:
	case ProviderRazorpay:
		if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required for the razorpay provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown payment provider %q (must be fake or razorpay)", c.Payment.Provider))
	}
	if c.Payment.KeySecret == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_SECRET is required to verify payment signatures"))
	}
	if c.Payment.Currency == "" {
		errs = append(errs, errors.New("PAYMENT_CURRENCY is required"))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("PAYMENT_TIMEOUT must be positive"))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q (must be memory, mongo or postgres)", c.Store.Driver))
	}

	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate >= 1 {
		errs = append(errs, fmt.Errorf("TAX_RATE %v out of range [0, 1)", c.Pricing.TaxRate))
	}
	if c.Pricing.DeliveryFee < 0 || c.Pricing.FreeDeliveryThreshold < 0 {
		errs = append(errs, errors.New("delivery fee and free delivery threshold must not be negative"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("10s") or plain seconds ("10").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
