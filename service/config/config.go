package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration loaded from environment variables.
// It is immutable after Load and injected into components at construction;
// nothing in the service reads ambient state at request time.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string `validate:"required"`
	LogLevel   string

	// Chain data provider configuration
	StacksAPIURL string `validate:"required,url"`
	Network      string `validate:"required,oneof=mainnet testnet"`

	// Bound on each individual chain lookup. The wallet aggregator's latency
	// floor is the slowest of its four concurrent lookups, so this is also
	// the effective aggregation bound.
	LookupTimeout time.Duration `validate:"gt=0"`

	Payment PaymentConfig
	Image   ImageConfig
}

// PaymentConfig describes the expected on-chain payment.
type PaymentConfig struct {
	// Fully qualified contract, e.g. "SP123....stackcard-mint".
	ContractID   string `validate:"required,contains=."`
	FunctionName string `validate:"required"`

	// Price in micro-STX (6 decimals).
	PriceMicroSTX int64 `validate:"gt=0"`

	// Recipient shown in the challenge; defaults to the contract deployer.
	Recipient string `validate:"required"`

	// How long an issued challenge advertises itself as valid.
	ChallengeTTL time.Duration `validate:"gt=0"`

	// When true, verification additionally requires the transaction's STX
	// transfer events to cover PriceMicroSTX toward the recipient.
	EnforceAmount bool
}

// ImageConfig describes the image generation API.
type ImageConfig struct {
	APIURL string `validate:"required,url"`
	APIKey string
	// Target dimensions, e.g. "1024x1024".
	Size           string        `validate:"required"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is missing
// or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Chain data provider
	cfg.StacksAPIURL = getEnvOrDefault("STACKS_API_URL", "https://api.hiro.so")
	cfg.Network = getEnvOrDefault("STACKS_NETWORK", "mainnet")

	lookupTimeout, err := parseDuration("LOOKUP_TIMEOUT", "5s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.LookupTimeout = lookupTimeout
	}

	// Payment configuration
	cfg.Payment.ContractID = os.Getenv("PAYMENT_CONTRACT_ID")
	if cfg.Payment.ContractID == "" {
		errs = append(errs, fmt.Errorf("PAYMENT_CONTRACT_ID is required"))
	}
	cfg.Payment.FunctionName = getEnvOrDefault("PAYMENT_FUNCTION_NAME", "mint-card")

	price, err := parseInt64("PAYMENT_PRICE_MICROSTX", 1_000_000)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Payment.PriceMicroSTX = price
	}

	// Default the recipient to the contract deployer address.
	cfg.Payment.Recipient = os.Getenv("PAYMENT_RECIPIENT")
	if cfg.Payment.Recipient == "" {
		if deployer, _, ok := strings.Cut(cfg.Payment.ContractID, "."); ok {
			cfg.Payment.Recipient = deployer
		}
	}

	challengeTTL, err := parseDuration("PAYMENT_CHALLENGE_TTL", "15m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Payment.ChallengeTTL = challengeTTL
	}

	enforceAmount, err := parseBool("PAYMENT_ENFORCE_AMOUNT", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Payment.EnforceAmount = enforceAmount
	}

	// Image generation configuration
	cfg.Image.APIURL = os.Getenv("IMAGE_API_URL")
	if cfg.Image.APIURL == "" {
		errs = append(errs, fmt.Errorf("IMAGE_API_URL is required"))
	}
	cfg.Image.APIKey = os.Getenv("IMAGE_API_KEY")
	cfg.Image.Size = getEnvOrDefault("IMAGE_SIZE", "1024x1024")

	imageTimeout, err := parseDuration("IMAGE_REQUEST_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.Image.RequestTimeout = imageTimeout
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid. Struct tags cover the
// per-field rules; cross-field rules are checked explicitly.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var errs []error

	if !strings.Contains(c.Payment.ContractID, ".") {
		errs = append(errs, fmt.Errorf("PAYMENT_CONTRACT_ID must be a fully qualified contract (deployer.name)"))
	}

	if c.LookupTimeout > c.Image.RequestTimeout {
		errs = append(errs, fmt.Errorf("LOOKUP_TIMEOUT (%v) should not exceed IMAGE_REQUEST_TIMEOUT (%v)",
			c.LookupTimeout, c.Image.RequestTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt64 parses an integer from an environment variable or uses a default.
func parseInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
