package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE.stackcard-mint"

// setRequiredEnv sets the minimal environment a successful Load needs.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PAYMENT_CONTRACT_ID", testContract)
	t.Setenv("IMAGE_API_URL", "https://images.example.com/generate")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.hiro.so", cfg.StacksAPIURL)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, 5*time.Second, cfg.LookupTimeout)

	assert.Equal(t, testContract, cfg.Payment.ContractID)
	assert.Equal(t, "mint-card", cfg.Payment.FunctionName)
	assert.Equal(t, int64(1_000_000), cfg.Payment.PriceMicroSTX)
	assert.Equal(t, 15*time.Minute, cfg.Payment.ChallengeTTL)
	assert.False(t, cfg.Payment.EnforceAmount)

	assert.Equal(t, "1024x1024", cfg.Image.Size)
	assert.Equal(t, 60*time.Second, cfg.Image.RequestTimeout)
}

func TestLoad_RecipientDefaultsToDeployer(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE", cfg.Payment.Recipient)

	t.Setenv("PAYMENT_RECIPIENT", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", cfg.Payment.Recipient)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("STACKS_NETWORK", "testnet")
	t.Setenv("LOOKUP_TIMEOUT", "2s")
	t.Setenv("PAYMENT_PRICE_MICROSTX", "2500000")
	t.Setenv("PAYMENT_ENFORCE_AMOUNT", "true")
	t.Setenv("IMAGE_SIZE", "512x512")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "testnet", cfg.Network)
	assert.Equal(t, 2*time.Second, cfg.LookupTimeout)
	assert.Equal(t, int64(2_500_000), cfg.Payment.PriceMicroSTX)
	assert.True(t, cfg.Payment.EnforceAmount)
	assert.Equal(t, "512x512", cfg.Image.Size)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing contract",
			env:  map[string]string{"PAYMENT_CONTRACT_ID": ""},
		},
		{
			name: "missing image url",
			env:  map[string]string{"IMAGE_API_URL": ""},
		},
		{
			name: "bad network",
			env:  map[string]string{"STACKS_NETWORK": "devnet"},
		},
		{
			name: "bad duration",
			env:  map[string]string{"LOOKUP_TIMEOUT": "soon"},
		},
		{
			name: "bad price",
			env:  map[string]string{"PAYMENT_PRICE_MICROSTX": "one million"},
		},
		{
			name: "bad bool",
			env:  map[string]string{"PAYMENT_ENFORCE_AMOUNT": "yep"},
		},
		{
			name: "unqualified contract",
			env:  map[string]string{"PAYMENT_CONTRACT_ID": "no-dot-here"},
		},
		{
			name: "lookup timeout exceeds image timeout",
			env:  map[string]string{"LOOKUP_TIMEOUT": "90s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_DirectConstruction(t *testing.T) {
	cfg := &Config{
		ServerAddr:    ":8080",
		StacksAPIURL:  "https://api.hiro.so",
		Network:       "mainnet",
		LookupTimeout: 5 * time.Second,
		Payment: PaymentConfig{
			ContractID:    testContract,
			FunctionName:  "mint-card",
			PriceMicroSTX: 1_000_000,
			Recipient:     "SP3FBR2AGK5H9QBDH3EEN6DF8EK8JY7RX8QJ5SVTE",
			ChallengeTTL:  15 * time.Minute,
		},
		Image: ImageConfig{
			APIURL:         "https://images.example.com/generate",
			Size:           "1024x1024",
			RequestTimeout: 60 * time.Second,
		},
	}
	require.NoError(t, cfg.Validate())

	cfg.Payment.PriceMicroSTX = 0
	assert.Error(t, cfg.Validate())
}
