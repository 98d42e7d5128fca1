// Package client is the Go client for the stackcard service API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrPaymentRequired is returned by Card when the server issues a payment
// challenge; the accompanying Challenge carries the payment details.
var ErrPaymentRequired = errors.New("payment required")

// WalletData mirrors the server's aggregated wallet record.
type WalletData struct {
	Address          string              `json:"address"`
	Name             string              `json:"name,omitempty"`
	NativeBalance    string              `json:"nativeBalance"`
	FungibleHoldings []FungibleHolding   `json:"fungibleHoldings"`
	NonFungibleCount int                 `json:"nonFungibleCount"`
	TopCollections   []CollectionHolding `json:"topCollections"`
}

// FungibleHolding is one fungible token position.
type FungibleHolding struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
	Balance     string `json:"balance"`
}

// CollectionHolding is one NFT collection with a representative item.
type CollectionHolding struct {
	CollectionName string `json:"collectionName"`
	ItemName       string `json:"itemName"`
}

// PromptResponse is the /prompt payload.
type PromptResponse struct {
	WalletData WalletData `json:"walletData"`
	Prompt     string     `json:"prompt"`
	Note       string     `json:"note"`
}

// Challenge is the server's 402 payload.
type Challenge struct {
	Error        string         `json:"error"`
	Code         string         `json:"code"`
	Resource     string         `json:"resource"`
	Payment      PaymentDetails `json:"payment"`
	Instructions []string       `json:"instructions"`
	Nonce        string         `json:"nonce"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	Description  string         `json:"description"`
	WalletData   WalletData     `json:"walletData"`
	Prompt       string         `json:"prompt"`
	QRCodeData   string         `json:"qr_code_data,omitempty"`
}

// PaymentDetails names the expected payment target and mechanism.
type PaymentDetails struct {
	Contract  string `json:"contract"`
	Function  string `json:"function"`
	Price     string `json:"price"` // micro-STX
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Network   string `json:"network"`
}

// paymentProofHeader carries the payment claim on /card requests.
const paymentProofHeader = "X-Payment-Txid"

// Client is the HTTP client for the stackcard service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new stackcard service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Data retrieves the aggregated wallet record for an address.
func (c *Client) Data(ctx context.Context, address string) (*WalletData, error) {
	u := fmt.Sprintf("%s/data/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var data WalletData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("wallet data retrieved", "address", address)
	return &data, nil
}

// Prompt retrieves the card prompt preview for an address.
func (c *Client) Prompt(ctx context.Context, address string) (*PromptResponse, error) {
	u := fmt.Sprintf("%s/prompt/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var pr PromptResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &pr, nil
}

// Card requests the rendered card image. When paymentTxID is empty or the
// server challenges anyway, Card returns the decoded challenge alongside
// ErrPaymentRequired. On success it returns the image bytes.
func (c *Client) Card(ctx context.Context, address, paymentTxID string) ([]byte, *Challenge, error) {
	u := fmt.Sprintf("%s/card/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if paymentTxID != "" {
		req.Header.Set(paymentProofHeader, paymentTxID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		img, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read image: %w", err)
		}
		c.logger.Debug("card retrieved", "address", address, "bytes", len(img))
		return img, nil, nil

	case http.StatusPaymentRequired:
		var challenge Challenge
		if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
			return nil, nil, fmt.Errorf("failed to decode challenge: %w", err)
		}
		return nil, &challenge, ErrPaymentRequired

	default:
		return nil, nil, c.parseErrorResponse(resp)
	}
}

// parseErrorResponse extracts the error envelope from a failed response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var body struct {
		Error   string          `json:"error"`
		Details json.RawMessage `json:"details,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if len(body.Details) > 0 {
		return fmt.Errorf("server returned status %d: %s (%s)", resp.StatusCode, body.Error, body.Details)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, body.Error)
}
