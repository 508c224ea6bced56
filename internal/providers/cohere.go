package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// The corpus is embedded with input_type "search_document"; queries must
// use "search_query" or similarity degrades.
const cohereQueryInputType = "search_query"

// CohereEmbedder embeds text through the Cohere v1 embed API.
type CohereEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// CohereConfig holds configuration for the Cohere embed API.
type CohereConfig struct {
	BaseURL string // default: https://api.cohere.ai
	APIKey  string
	Model   string // default: embed-english-light-v3.0
	Timeout time.Duration
}

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Message    string      `json:"message"`
}

// NewCohereEmbedder creates a new Cohere embedding provider
func NewCohereEmbedder(config CohereConfig) *CohereEmbedder {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.cohere.ai"
	}
	if config.Model == "" {
		config.Model = "embed-english-light-v3.0"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &CohereEmbedder{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Model returns the configured embedding model identifier
func (c *CohereEmbedder) Model() string {
	return c.model
}

// Embed turns a query string into an embedding vector
func (c *CohereEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := cohereEmbedRequest{
		Texts:     []string{text},
		Model:     c.model,
		InputType: cohereQueryInputType,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/embed", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		// Cohere wraps its error text in {"message": "..."}; surface the
		// message itself when the body parses.
		var errResp cohereEmbedResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return nil, fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, errResp.Message)
		}
		return nil, fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, string(body))
	}

	var embedResp cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	if len(embedResp.Embeddings) == 0 {
		return nil, fmt.Errorf("cohere returned no embeddings")
	}

	return embedResp.Embeddings[0], nil
}
