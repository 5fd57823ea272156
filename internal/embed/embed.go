// Package embed produces document embeddings through the Voyage AI API and
// caches the resulting matrix on disk so repeated topic-model runs over an
// unchanged corpus skip the API entirely.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"radar/internal/logger"
)

// DefaultBaseURL is the hosted Voyage API root.
const DefaultBaseURL = "https://api.voyageai.com/v1"

// Client talks to the Voyage embeddings endpoint.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	batchSize int
	client    *http.Client
}

// NewClient creates a client. Empty baseURL selects DefaultBaseURL;
// batchSize <= 0 selects the API's documented maximum of 128.
func NewClient(apiKey, baseURL, model string, batchSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if batchSize <= 0 {
		batchSize = 128
	}
	return &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		model:     model,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

type embedRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail"`
}

// Embed returns one embedding per input text, preserving order. Inputs are
// sent in batches of the configured size.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
		logger.Info("embeddings batch done", "from", start, "to", end, "total", len(texts))
	}

	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{
		Input:     texts,
		Model:     c.model,
		InputType: "document",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if embedResp.Detail != "" {
			return nil, fmt.Errorf("embeddings request failed: %s", embedResp.Detail)
		}
		return nil, fmt.Errorf("embeddings request failed with status %d", resp.StatusCode)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(embedResp.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range embedResp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings response has out-of-range index %d", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
