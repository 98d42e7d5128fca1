package stacks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stacksmith/stackcard/service/metrics"
)

const (
	// Display truncation limits. Counts are still summed across everything
	// the provider returned, not just the displayed entries.
	maxFungibleHoldings = 5
	maxTopCollections   = 3
)

// DataClient is the set of read operations the aggregator fans out over.
// This allows mocking the chain data layer in tests without hitting a real API.
type DataClient interface {
	GetName(ctx context.Context, address string) (string, error)
	GetSTXBalance(ctx context.Context, address string) (string, error)
	GetFungibleHoldings(ctx context.Context, address string) ([]FungibleHolding, error)
	GetNonFungibleHoldings(ctx context.Context, address string) (NonFungibleHoldings, error)
}

// Aggregator merges the four independent chain lookups into one WalletRecord.
type Aggregator struct {
	client  DataClient
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAggregator creates a new wallet aggregator.
// If m is nil, no metrics will be recorded.
func NewAggregator(client DataClient, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{client: client, metrics: m, logger: logger}
}

// Aggregate issues all four lookups concurrently, waits for all to settle,
// and merges the results. The merge always succeeds: a failed lookup leaves
// its field at the documented default ("0" balance, empty sequences, zero
// count) and is visible only through those defaults. The caller's latency
// floor is the slowest lookup, bounded by the client's per-call timeout.
func (a *Aggregator) Aggregate(ctx context.Context, address string) WalletRecord {
	var (
		name       string
		nameErr    error
		balance    string
		balanceErr error
		fungible   []FungibleHolding
		fungErr    error
		nonFung    NonFungibleHoldings
		nonFungErr error
	)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		name, nameErr = a.client.GetName(ctx, address)
	}()
	go func() {
		defer wg.Done()
		balance, balanceErr = a.client.GetSTXBalance(ctx, address)
	}()
	go func() {
		defer wg.Done()
		fungible, fungErr = a.client.GetFungibleHoldings(ctx, address)
	}()
	go func() {
		defer wg.Done()
		nonFung, nonFungErr = a.client.GetNonFungibleHoldings(ctx, address)
	}()
	wg.Wait()

	rec := WalletRecord{
		Address:          address,
		NativeBalance:    "0",
		FungibleHoldings: []FungibleHolding{},
		TopCollections:   []CollectionHolding{},
	}

	if nameErr != nil {
		a.degraded(ctx, "get_name", address, nameErr)
	} else {
		rec.Name = name
	}

	if balanceErr != nil {
		a.degraded(ctx, "get_stx_balance", address, balanceErr)
	} else if balance != "" {
		rec.NativeBalance = balance
	}

	if fungErr != nil {
		a.degraded(ctx, "get_ft_holdings", address, fungErr)
	} else if len(fungible) > 0 {
		if len(fungible) > maxFungibleHoldings {
			fungible = fungible[:maxFungibleHoldings]
		}
		rec.FungibleHoldings = fungible
	}

	if nonFungErr != nil {
		a.degraded(ctx, "get_nft_holdings", address, nonFungErr)
	} else {
		rec.NonFungibleCount = nonFung.Count
		collections := nonFung.Collections
		if len(collections) > maxTopCollections {
			collections = collections[:maxTopCollections]
		}
		if len(collections) > 0 {
			rec.TopCollections = collections
		}
	}

	return rec
}

// degraded records a lookup failure that was absorbed into field defaults.
func (a *Aggregator) degraded(ctx context.Context, operation, address string, err error) {
	if a.metrics != nil {
		a.metrics.RecordLookupDegradation(operation)
	}
	a.logger.DebugContext(ctx, "wallet lookup degraded to default",
		"operation", operation,
		"address", address,
		"error", err,
	)
}
