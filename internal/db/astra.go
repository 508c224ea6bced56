package db

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

// AstraClient wraps HTTP calls to the Astra DB Data API (JSON API).
// Commands are posted as single-key JSON documents against a collection
// path; vector search is expressed as a sort on $vector (client-side
// embedding) or $vectorize (server-side embedding from raw text).
type AstraClient struct {
	endpoint   string
	token      string
	keyspace   string
	httpClient *http.Client
}

// AstraConfig holds configuration for the Astra Data API connection
type AstraConfig struct {
	Endpoint string // e.g. https://<db-id>-<region>.apps.astra.datastax.com
	Token    string // AstraCS:... application token
	Keyspace string // default: "default_keyspace"
	Timeout  time.Duration
}

// FindOptions controls a find command. Exactly one of Vector or Vectorize
// should be set for similarity queries; both empty means a plain filter find.
type FindOptions struct {
	Vector            []float32
	Vectorize         string
	Filter            map[string]interface{}
	Projection        map[string]int
	Limit             int
	IncludeSimilarity bool
}

// astraResponse is the common envelope the Data API wraps every reply in.
type astraResponse struct {
	Data *struct {
		Document  map[string]interface{}   `json:"document"`
		Documents []map[string]interface{} `json:"documents"`
	} `json:"data"`
	Status map[string]interface{} `json:"status"`
	Errors []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	} `json:"errors"`
}

// NewAstraClient creates a new Data API client
func NewAstraClient(config AstraConfig) *AstraClient {
	if config.Keyspace == "" {
		config.Keyspace = "default_keyspace"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &AstraClient{
		endpoint: strings.TrimSuffix(config.Endpoint, "/"),
		token:    config.Token,
		keyspace: config.Keyspace,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Find runs a find command against a collection and returns the matching
// documents, nearest first when a vector sort is present.
func (c *AstraClient) Find(ctx context.Context, collection string, opts FindOptions) ([]map[string]interface{}, error) {
	find := map[string]interface{}{}

	if opts.Filter != nil {
		find["filter"] = opts.Filter
	}
	if len(opts.Vector) > 0 {
		find["sort"] = map[string]interface{}{"$vector": opts.Vector}
	} else if opts.Vectorize != "" {
		find["sort"] = map[string]interface{}{"$vectorize": opts.Vectorize}
	}
	if opts.Projection != nil {
		find["projection"] = opts.Projection
	}

	options := map[string]interface{}{}
	if opts.Limit > 0 {
		options["limit"] = opts.Limit
	}
	if opts.IncludeSimilarity {
		options["includeSimilarity"] = true
	}
	if len(options) > 0 {
		find["options"] = options
	}

	resp, err := c.postCommand(ctx, collection, map[string]interface{}{"find": find})
	if err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("find returned no data")
	}
	return resp.Data.Documents, nil
}

// FindOne retrieves a single document matching the filter, or nil when
// nothing matches.
func (c *AstraClient) FindOne(ctx context.Context, collection string, filter map[string]interface{}, projection map[string]int) (map[string]interface{}, error) {
	findOne := map[string]interface{}{
		"filter": filter,
	}
	if projection != nil {
		findOne["projection"] = projection
	}

	resp, err := c.postCommand(ctx, collection, map[string]interface{}{"findOne": findOne})
	if err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, nil
	}
	return resp.Data.Document, nil
}

// Ping verifies the database is reachable by listing collections in the
// configured keyspace.
func (c *AstraClient) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/json/v1/%s", c.endpoint, c.keyspace)
	_, err := c.post(ctx, url, map[string]interface{}{
		"findCollections": map[string]interface{}{},
	})
	return err
}

// Close closes the HTTP client connections
func (c *AstraClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// postCommand posts a Data API command to a collection path.
func (c *AstraClient) postCommand(ctx context.Context, collection string, command map[string]interface{}) (*astraResponse, error) {
	url := fmt.Sprintf("%s/api/json/v1/%s/%s", c.endpoint, c.keyspace, collection)
	return c.post(ctx, url, command)
}

func (c *AstraClient) post(ctx context.Context, url string, command map[string]interface{}) (*astraResponse, error) {
	data, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("data API returned status %d: %s", resp.StatusCode, string(body))
	}

	var astraResp astraResponse
	if err := json.NewDecoder(resp.Body).Decode(&astraResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The Data API reports command failures inside a 200 response.
	if len(astraResp.Errors) > 0 {
		return nil, fmt.Errorf("data API error (%s): %s",
			astraResp.Errors[0].ErrorCode, astraResp.Errors[0].Message)
	}

	return &astraResp, nil
}
