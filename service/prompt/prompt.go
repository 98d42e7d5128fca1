// Package prompt builds the image-generation prompt for a wallet record.
// The output is a pure function of the record: the same record always yields
// byte-identical text. The gate shows this prompt to callers before payment,
// so any drift between the preview and the paid render breaks the contract.
package prompt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stacksmith/stackcard/service/stacks"
)

const (
	// STX amounts are fixed-point with 6 decimal places (micro-STX).
	stxDecimals = 6

	// Shown when the wallet holds no fungible tokens beyond STX.
	soloHoldingsLabel = "single native asset"

	holdingsSeparator = ", "
)

// Build maps a WalletRecord to the card prompt. Deterministic, total: every
// record (including a maximally degraded one) produces a usable prompt.
func Build(rec stacks.WalletRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A collectible trading card for the Stacks wallet %q. ", displayIdentifier(rec))
	fmt.Fprintf(&b, "Balance: %s STX. ", FormatSTX(rec.NativeBalance))
	fmt.Fprintf(&b, "Token holdings: %s. ", holdingsSummary(rec.FungibleHoldings))
	fmt.Fprintf(&b, "NFT count: %d. ", rec.NonFungibleCount)

	if len(rec.TopCollections) > 0 {
		names := make([]string, len(rec.TopCollections))
		for i, c := range rec.TopCollections {
			names[i] = c.CollectionName
		}
		fmt.Fprintf(&b, "Featured collections: %s. ", strings.Join(names, holdingsSeparator))
	}

	b.WriteString("Style: vibrant retro-futurist trading card, ornate border, holographic sheen, centered emblem, no text overlays.")

	return b.String()
}

// displayIdentifier is the registered BNS name when present, otherwise an
// elided form of the address (short prefix, ellipsis, short suffix).
func displayIdentifier(rec stacks.WalletRecord) string {
	if rec.Name != "" {
		return rec.Name
	}
	return ElideAddress(rec.Address)
}

// ElideAddress shortens an address to "SP2J6...9EJ7" form. Addresses too
// short to elide are returned unchanged.
func ElideAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:5] + "..." + address[len(address)-4:]
}

// FormatSTX converts a micro-STX decimal string to whole STX for display.
// Unparseable input (possible only if the chain API returns a malformed
// amount) falls back to "0".
func FormatSTX(microSTX string) string {
	d, err := decimal.NewFromString(microSTX)
	if err != nil {
		return "0"
	}
	return d.Shift(-stxDecimals).String()
}

// holdingsSummary joins the holdings' display names, or returns the sentinel
// label for a wallet holding only the native asset.
func holdingsSummary(holdings []stacks.FungibleHolding) string {
	if len(holdings) == 0 {
		return soloHoldingsLabel
	}
	names := make([]string, len(holdings))
	for i, h := range holdings {
		names[i] = h.DisplayName
	}
	return strings.Join(names, holdingsSeparator)
}
