package stacks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDataClient implements DataClient with per-operation function hooks.
type mockDataClient struct {
	calls   atomic.Int64
	name    func() (string, error)
	balance func() (string, error)
	ft      func() ([]FungibleHolding, error)
	nft     func() (NonFungibleHoldings, error)
}

func (m *mockDataClient) GetName(ctx context.Context, address string) (string, error) {
	m.calls.Add(1)
	return m.name()
}

func (m *mockDataClient) GetSTXBalance(ctx context.Context, address string) (string, error) {
	m.calls.Add(1)
	return m.balance()
}

func (m *mockDataClient) GetFungibleHoldings(ctx context.Context, address string) ([]FungibleHolding, error) {
	m.calls.Add(1)
	return m.ft()
}

func (m *mockDataClient) GetNonFungibleHoldings(ctx context.Context, address string) (NonFungibleHoldings, error) {
	m.calls.Add(1)
	return m.nft()
}

func healthyMock() *mockDataClient {
	return &mockDataClient{
		name:    func() (string, error) { return "satoshi.btc", nil },
		balance: func() (string, error) { return "2500000", nil },
		ft: func() ([]FungibleHolding, error) {
			return []FungibleHolding{{Symbol: "alex", DisplayName: "token-alex", Balance: "10"}}, nil
		},
		nft: func() (NonFungibleHoldings, error) {
			return NonFungibleHoldings{Count: 2, Collections: []CollectionHolding{{CollectionName: "punks", ItemName: "u1"}}}, nil
		},
	}
}

func TestAggregate_AllLookupsSucceed(t *testing.T) {
	mock := healthyMock()
	agg := NewAggregator(mock, nil, testLogger())

	rec := agg.Aggregate(context.Background(), testAddress)

	assert.Equal(t, testAddress, rec.Address)
	assert.Equal(t, "satoshi.btc", rec.Name)
	assert.Equal(t, "2500000", rec.NativeBalance)
	assert.Len(t, rec.FungibleHoldings, 1)
	assert.Equal(t, 2, rec.NonFungibleCount)
	assert.Len(t, rec.TopCollections, 1)
	assert.Equal(t, int64(4), mock.calls.Load(), "all four lookups issued")
}

func TestAggregate_TotalOutageYieldsDegradedRecord(t *testing.T) {
	boom := fmt.Errorf("upstream down")
	mock := &mockDataClient{
		name:    func() (string, error) { return "", boom },
		balance: func() (string, error) { return "", boom },
		ft:      func() ([]FungibleHolding, error) { return nil, boom },
		nft:     func() (NonFungibleHoldings, error) { return NonFungibleHoldings{}, boom },
	}
	agg := NewAggregator(mock, nil, testLogger())

	rec := agg.Aggregate(context.Background(), testAddress)

	// Construction never fails: every field takes its documented default.
	assert.Equal(t, testAddress, rec.Address)
	assert.Empty(t, rec.Name)
	assert.Equal(t, "0", rec.NativeBalance)
	assert.NotNil(t, rec.FungibleHoldings)
	assert.Empty(t, rec.FungibleHoldings)
	assert.Zero(t, rec.NonFungibleCount)
	assert.NotNil(t, rec.TopCollections)
	assert.Empty(t, rec.TopCollections)
}

func TestAggregate_PartialFailureDegradesOnlyThatField(t *testing.T) {
	mock := healthyMock()
	mock.balance = func() (string, error) { return "", fmt.Errorf("timeout") }

	agg := NewAggregator(mock, nil, testLogger())
	rec := agg.Aggregate(context.Background(), testAddress)

	assert.Equal(t, "0", rec.NativeBalance)
	assert.Equal(t, "satoshi.btc", rec.Name, "other fields unaffected")
	assert.Len(t, rec.FungibleHoldings, 1)
}

func TestAggregate_Truncation(t *testing.T) {
	// 8 fungible holdings and 7 collections totalling 31 items: the record
	// displays 5 and 3, but the count covers all items.
	var fts []FungibleHolding
	for i := range 8 {
		fts = append(fts, FungibleHolding{
			Symbol:      fmt.Sprintf("tok%d", i),
			DisplayName: fmt.Sprintf("token-%d", i),
			Balance:     "1",
		})
	}
	var collections []CollectionHolding
	for i := range 7 {
		collections = append(collections, CollectionHolding{
			CollectionName: fmt.Sprintf("collection-%d", i),
			ItemName:       fmt.Sprintf("item-%d", i),
		})
	}

	mock := healthyMock()
	mock.ft = func() ([]FungibleHolding, error) { return fts, nil }
	mock.nft = func() (NonFungibleHoldings, error) {
		return NonFungibleHoldings{Count: 31, Collections: collections}, nil
	}

	agg := NewAggregator(mock, nil, testLogger())
	rec := agg.Aggregate(context.Background(), testAddress)

	require.Len(t, rec.FungibleHoldings, 5)
	assert.Equal(t, "tok0", rec.FungibleHoldings[0].Symbol, "provider order preserved")
	assert.Equal(t, "tok4", rec.FungibleHoldings[4].Symbol)

	require.Len(t, rec.TopCollections, 3)
	assert.Equal(t, "collection-0", rec.TopCollections[0].CollectionName)
	assert.Equal(t, 31, rec.NonFungibleCount, "count sums across all collections, not the displayed 3")
}
