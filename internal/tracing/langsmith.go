package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// LangSmithClient records chat runs against the LangSmith REST API.
// Tracing is strictly best-effort: every failure is logged and swallowed
// so a tracing outage never affects a chat response.
type LangSmithClient struct {
	baseURL    string
	apiKey     string
	project    string
	httpClient *http.Client
	logger     *log.Logger
}

// LangSmithConfig holds connection settings for the tracing backend.
type LangSmithConfig struct {
	BaseURL string
	APIKey  string
	Project string
	Timeout time.Duration
}

// NewLangSmithClient creates a tracing client. A client with an empty API
// key is valid and simply reports itself as not configured.
func NewLangSmithClient(config LangSmithConfig, logger *log.Logger) *LangSmithClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.smith.langchain.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &LangSmithClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		project: config.Project,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Configured reports whether tracing credentials are present.
func (c *LangSmithClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Run is a handle to an in-flight trace run. The run identifier resolves
// asynchronously once the backend has acknowledged the run creation.
type Run struct {
	id   string
	done chan struct{}
}

// Wait blocks until the run identifier is available or the context is
// cancelled, whichever comes first. It returns "" when the run was never
// acknowledged in time.
func (r *Run) Wait(ctx context.Context) string {
	if r == nil {
		return ""
	}
	select {
	case <-r.done:
		return r.id
	case <-ctx.Done():
		return ""
	}
}

// StartRun registers a new run without blocking the caller. The returned
// handle resolves to the run identifier once the create request succeeds,
// or to "" when it fails.
func (c *LangSmithClient) StartRun(name string, inputs map[string]interface{}) *Run {
	if !c.Configured() {
		return nil
	}

	run := &Run{done: make(chan struct{})}
	runID := uuid.New().String()

	go func() {
		defer close(run.done)

		payload := map[string]interface{}{
			"id":           runID,
			"name":         name,
			"run_type":     "chain",
			"inputs":       inputs,
			"start_time":   time.Now().UTC().Format(time.RFC3339Nano),
			"session_name": c.project,
		}

		if err := c.post(http.MethodPost, "/runs", payload); err != nil {
			c.logger.Printf("[TRACING] ⚠️ Failed to create run: %v", err)
			return
		}

		run.id = runID
		c.logger.Printf("[TRACING] Created run %s", runID)
	}()

	return run
}

// EndRun closes out a run with its outputs. Like StartRun it returns
// immediately and reports failures only through the log.
func (c *LangSmithClient) EndRun(run *Run, outputs map[string]interface{}, runErr error) {
	if !c.Configured() || run == nil {
		return
	}

	go func() {
		// The patch needs the acknowledged run id.
		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()

		runID := run.Wait(ctx)
		if runID == "" {
			return
		}

		payload := map[string]interface{}{
			"end_time": time.Now().UTC().Format(time.RFC3339Nano),
			"outputs":  outputs,
		}
		if runErr != nil {
			payload["error"] = runErr.Error()
		}

		if err := c.post(http.MethodPatch, "/runs/"+runID, payload); err != nil {
			c.logger.Printf("[TRACING] ⚠️ Failed to end run %s: %v", runID, err)
		}
	}()
}

func (c *LangSmithClient) post(method, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tracing backend returned status %d", resp.StatusCode)
	}

	return nil
}
