package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacksmith/stackcard/service/stacks"
)

const testAddress = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

func sampleRecord() stacks.WalletRecord {
	return stacks.WalletRecord{
		Address:       testAddress,
		Name:          "satoshi.btc",
		NativeBalance: "123450000",
		FungibleHoldings: []stacks.FungibleHolding{
			{Symbol: "alex", DisplayName: "token-alex", Balance: "10"},
			{Symbol: "wstx", DisplayName: "token-wstx", Balance: "5"},
		},
		NonFungibleCount: 7,
		TopCollections: []stacks.CollectionHolding{
			{CollectionName: "punks", ItemName: "u42"},
		},
	}
}

func TestBuild_Deterministic(t *testing.T) {
	rec := sampleRecord()
	first := Build(rec)
	second := Build(rec)
	assert.Equal(t, first, second, "identical records must produce byte-identical prompts")
}

func TestBuild_UsesRegisteredName(t *testing.T) {
	p := Build(sampleRecord())
	assert.Contains(t, p, `"satoshi.btc"`)
	assert.NotContains(t, p, "SP2J6...9EJ7")
}

func TestBuild_ElidesAddressWithoutName(t *testing.T) {
	rec := sampleRecord()
	rec.Name = ""
	p := Build(rec)
	assert.Contains(t, p, `"SP2J6...9EJ7"`)
	assert.NotContains(t, p, testAddress, "full address never appears in the prompt")
}

func TestBuild_BalanceAndHoldings(t *testing.T) {
	p := Build(sampleRecord())
	assert.Contains(t, p, "Balance: 123.45 STX")
	assert.Contains(t, p, "Token holdings: token-alex, token-wstx")
	assert.Contains(t, p, "NFT count: 7")
	assert.Contains(t, p, "Featured collections: punks")
}

func TestBuild_DegradedRecord(t *testing.T) {
	rec := stacks.WalletRecord{
		Address:          testAddress,
		NativeBalance:    "0",
		FungibleHoldings: []stacks.FungibleHolding{},
		TopCollections:   []stacks.CollectionHolding{},
	}
	p := Build(rec)
	assert.Contains(t, p, "Balance: 0 STX")
	assert.Contains(t, p, "Token holdings: single native asset")
	assert.Contains(t, p, "NFT count: 0")
	assert.NotContains(t, p, "Featured collections")
}

func TestFormatSTX(t *testing.T) {
	tests := []struct {
		microSTX string
		expected string
	}{
		{"0", "0"},
		{"1000000", "1"},
		{"123450000", "123.45"},
		{"1", "0.000001"},
		{"2500000", "2.5"},
		{"not-a-number", "0"},
		{"", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.microSTX, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSTX(tt.microSTX))
		})
	}
}

func TestElideAddress(t *testing.T) {
	assert.Equal(t, "SP2J6...9EJ7", ElideAddress(testAddress))
	assert.Equal(t, "SHORT", ElideAddress("SHORT"), "short strings pass through")
}
