// Package imagegen wraps the image generation API behind the paid route.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacksmith/stackcard/service/config"
	"github.com/stacksmith/stackcard/service/metrics"
)

// PaymentRequiredError is returned when the generator itself demands payment
// (a second payment layer downstream of the gate). The upstream body is
// carried verbatim so the gate can pass it through.
type PaymentRequiredError struct {
	Body json.RawMessage
}

func (e *PaymentRequiredError) Error() string {
	return "image generator requires payment"
}

// GenerateError distinguishes the generator rejecting the call from the
// secondary fetch of a URL-referenced artifact failing.
type GenerateError struct {
	Stage string // "generate" or "fetch"
	Err   error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("image generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Client calls an OpenAI-style images API: the generator returns either the
// artifact bytes inline (base64) or a URL the bytes must be fetched from.
type Client struct {
	cfg        config.ImageConfig
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a new image generation client.
// If m is nil, no metrics will be recorded.
func NewClient(cfg config.ImageConfig, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		metrics:    m,
		logger:     logger,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generateResponse struct {
	Data []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// Generate renders the prompt at the configured dimensions and returns the
// artifact bytes. The generation call is issued exactly once; it is not
// repeated even when a subsequent URL fetch fails.
func (c *Client) Generate(ctx context.Context, promptText string) ([]byte, error) {
	body, err := json.Marshal(generateRequest{Prompt: promptText, N: 1, Size: c.cfg.Size})
	if err != nil {
		return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		c.recordCall("error", duration)
		return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		c.recordCall("payment_required", duration)
		upstream, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.WarnContext(ctx, "image generator demanded payment")
		return nil, &PaymentRequiredError{Body: json.RawMessage(upstream)}
	}

	if resp.StatusCode != http.StatusOK {
		c.recordCall("error", duration)
		upstream, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &GenerateError{
			Stage: "generate",
			Err:   fmt.Errorf("image API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(upstream)),
		}
	}
	c.recordCall("success", duration)

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(genResp.Data) == 0 {
		return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("image API returned no artifacts")}
	}

	artifact := genResp.Data[0]
	if artifact.B64JSON != "" {
		img, err := base64.StdEncoding.DecodeString(artifact.B64JSON)
		if err != nil {
			return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("failed to decode artifact: %w", err)}
		}
		return img, nil
	}
	if artifact.URL == "" {
		return nil, &GenerateError{Stage: "generate", Err: fmt.Errorf("image API returned neither bytes nor a URL")}
	}

	return c.fetchArtifact(ctx, artifact.URL)
}

// fetchArtifact realizes the bytes behind a URL-referenced artifact.
func (c *Client) fetchArtifact(ctx context.Context, artifactURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return nil, &GenerateError{Stage: "fetch", Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GenerateError{Stage: "fetch", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GenerateError{Stage: "fetch", Err: fmt.Errorf("artifact fetch returned status %d", resp.StatusCode)}
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerateError{Stage: "fetch", Err: fmt.Errorf("failed to read artifact: %w", err)}
	}
	return img, nil
}

func (c *Client) recordCall(status string, duration float64) {
	if c.metrics != nil {
		c.metrics.RecordImageAPICall(status, duration)
	}
}
