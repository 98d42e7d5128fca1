package stacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stacksmith/stackcard/service/metrics"
)

// ErrTxNotFound is returned by GetTransaction when the chain API does not
// know the transaction.
var ErrTxNotFound = errors.New("transaction not found")

// Client wraps read-only calls against a Hiro-style Stacks API.
// Each lookup is a single attempt with a per-call timeout; transient upstream
// errors surface as plain errors and are absorbed by the aggregator as
// request-level degradation, never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new Stacks chain data client.
// lookupTimeout bounds each individual API call; zero disables the bound.
// If m is nil, no metrics will be recorded.
func NewClient(baseURL string, httpClient *http.Client, lookupTimeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    lookupTimeout,
		logger:     logger,
		metrics:    m,
	}
}

// apiError is a non-2xx response from the chain API.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("chain API returned status %d: %s", e.StatusCode, e.Body)
}

// getJSON performs one GET against the chain API and decodes the response.
// The operation label is used for logging and metrics only.
func (c *Client) getJSON(ctx context.Context, operation, path string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	status := "success"
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordChainAPICall(operation, status, duration)
		}
	}()

	if err != nil {
		status = "error"
		c.logger.WarnContext(ctx, "chain API call failed",
			"operation", operation,
			"error", err,
		)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "error"
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.WarnContext(ctx, "chain API returned non-2xx",
			"operation", operation,
			"status_code", resp.StatusCode,
		)
		return &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		status = "error"
		c.logger.WarnContext(ctx, "chain API returned malformed payload",
			"operation", operation,
			"error", err,
		)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetName looks up the primary BNS name registered to an address.
// Returns an empty string when the address has no names.
func (c *Client) GetName(ctx context.Context, address string) (string, error) {
	var resp namesResponse
	path := fmt.Sprintf("/v1/addresses/stacks/%s", url.PathEscape(address))
	if err := c.getJSON(ctx, "get_name", path, &resp); err != nil {
		return "", err
	}
	if len(resp.Names) == 0 {
		return "", nil
	}
	return resp.Names[0], nil
}

// GetSTXBalance looks up the native STX balance of an address.
// The returned amount is a decimal string in micro-STX.
func (c *Client) GetSTXBalance(ctx context.Context, address string) (string, error) {
	var resp stxBalanceResponse
	path := fmt.Sprintf("/extended/v2/addresses/%s/balances/stx", url.PathEscape(address))
	if err := c.getJSON(ctx, "get_stx_balance", path, &resp); err != nil {
		return "", err
	}
	if resp.Balance == "" {
		return "0", nil
	}
	return resp.Balance, nil
}

// GetFungibleHoldings looks up the fungible token positions of an address,
// in provider-returned order. The full list is returned; display truncation
// is the aggregator's concern.
func (c *Client) GetFungibleHoldings(ctx context.Context, address string) ([]FungibleHolding, error) {
	var resp ftBalancesResponse
	path := fmt.Sprintf("/extended/v2/addresses/%s/balances/ft?limit=50", url.PathEscape(address))
	if err := c.getJSON(ctx, "get_ft_holdings", path, &resp); err != nil {
		return nil, err
	}

	holdings := make([]FungibleHolding, 0, len(resp.Results))
	for _, entry := range resp.Results {
		symbol, displayName := parseAssetIdentifier(entry.Token)
		balance := entry.Balance
		if balance == "" {
			balance = "0"
		}
		holdings = append(holdings, FungibleHolding{
			Symbol:      symbol,
			DisplayName: displayName,
			Balance:     balance,
		})
	}
	return holdings, nil
}

// GetNonFungibleHoldings looks up the NFT positions of an address, grouped by
// collection in first-seen order. Count covers every held item reported by
// the provider, including collections beyond the grouped list.
func (c *Client) GetNonFungibleHoldings(ctx context.Context, address string) (NonFungibleHoldings, error) {
	var resp nftHoldingsResponse
	path := fmt.Sprintf("/extended/v1/tokens/nft/holdings?principal=%s&limit=50", url.QueryEscape(address))
	if err := c.getJSON(ctx, "get_nft_holdings", path, &resp); err != nil {
		return NonFungibleHoldings{}, err
	}

	seen := make(map[string]bool)
	var collections []CollectionHolding
	for _, entry := range resp.Results {
		_, collection := parseAssetIdentifier(entry.AssetIdentifier)
		if seen[collection] {
			continue
		}
		seen[collection] = true

		itemName := entry.Value.Repr
		if itemName == "" {
			itemName = collection
		}
		collections = append(collections, CollectionHolding{
			CollectionName: collection,
			ItemName:       itemName,
		})
	}

	count := resp.Total
	if count == 0 {
		count = len(resp.Results)
	}

	return NonFungibleHoldings{Count: count, Collections: collections}, nil
}

// GetTransaction fetches a transaction by its normalized txid.
// Returns ErrTxNotFound when the chain API responds 404; any other failure
// is a transport/lookup error.
func (c *Client) GetTransaction(ctx context.Context, txid string) (*Transaction, error) {
	var tx Transaction
	path := fmt.Sprintf("/extended/v1/tx/%s", url.PathEscape(txid))
	if err := c.getJSON(ctx, "get_transaction", path, &tx); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrTxNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// parseAssetIdentifier splits a Stacks asset identifier of the form
// "<deployer>.<contract-name>::<asset-name>" into the asset symbol and a
// display name derived from the contract name. Either segment may be missing
// in malformed identifiers; the other is used as the fallback.
func parseAssetIdentifier(identifier string) (symbol, displayName string) {
	rest := identifier
	if i := strings.Index(rest, "::"); i >= 0 {
		symbol = rest[i+2:]
		rest = rest[:i]
	}
	if j := strings.LastIndex(rest, "."); j >= 0 {
		displayName = rest[j+1:]
	} else {
		displayName = rest
	}
	if symbol == "" {
		symbol = displayName
	}
	if displayName == "" {
		displayName = symbol
	}
	return symbol, displayName
}
