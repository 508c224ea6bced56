package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"wikichat/internal/models"
)

// AnalyticsPublisher forwards completed chat turns to an analytics
// backend. Publishing is fire-and-forget from the pipeline's point of
// view; errors never reach the chat response.
type AnalyticsPublisher interface {
	Publish(ctx context.Context, event models.AnalyticsEvent) error
}

// FiddlerConfig holds connection settings for the Fiddler events API.
type FiddlerConfig struct {
	BaseURL string
	Token   string
	ModelID string
	Timeout time.Duration
}

// FiddlerPublisher ships chat events to Fiddler for answer-quality
// monitoring.
type FiddlerPublisher struct {
	baseURL    string
	token      string
	modelID    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewFiddlerPublisher creates a publisher for the configured Fiddler
// project model.
func NewFiddlerPublisher(config FiddlerConfig, logger *log.Logger) *FiddlerPublisher {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	return &FiddlerPublisher{
		baseURL: config.BaseURL,
		token:   config.Token,
		modelID: config.ModelID,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Publish sends a single chat event to Fiddler.
func (p *FiddlerPublisher) Publish(ctx context.Context, event models.AnalyticsEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	payload := map[string]interface{}{
		"source": map[string]interface{}{
			"type": "EVENTS",
			"events": []map[string]interface{}{
				{
					"question":  event.Question,
					"answer":    event.Answer,
					"documents": event.Documents,
					"url":       event.URL,
					"timestamp": event.Timestamp,
				},
			},
		},
		"env_type": "PRODUCTION",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics event: %w", err)
	}

	url := fmt.Sprintf("%s/v3/models/%s/publish", p.baseURL, p.modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create analytics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("analytics backend returned status %d", resp.StatusCode)
	}

	p.logger.Printf("[ANALYTICS] ✅ Published chat event")
	return nil
}

// NopPublisher discards every event. Used when no analytics backend is
// configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(ctx context.Context, event models.AnalyticsEvent) error {
	return nil
}
