package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikichat/internal/models"
)

func testEvent() models.AnalyticsEvent {
	return models.AnalyticsEvent{
		Question:  "How tall is the Eiffel Tower?",
		Answer:    "It is 330 metres tall.",
		Documents: "Title: Eiffel Tower\nURL: https://en.wikipedia.org/wiki/Eiffel_Tower\nContent: The tower is 330 metres tall.",
		URL:       "https://en.wikipedia.org/wiki/Eiffel_Tower",
		Timestamp: 1724976000000,
	}
}

func TestFiddlerPublishSendsEvent(t *testing.T) {
	var captured map[string]interface{}
	var authHeader, path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := NewFiddlerPublisher(FiddlerConfig{
		BaseURL: server.URL,
		Token:   "test-token",
		ModelID: "wikichat-model",
	}, log.New(os.Stdout, "[TEST] ", log.LstdFlags))

	err := publisher.Publish(context.Background(), testEvent())

	assert.NoError(t, err)
	assert.Equal(t, "Bearer test-token", authHeader)
	assert.Equal(t, "/v3/models/wikichat-model/publish", path)

	source := captured["source"].(map[string]interface{})
	events := source["events"].([]interface{})
	require.Len(t, events, 1)
	event := events[0].(map[string]interface{})
	assert.Equal(t, "How tall is the Eiffel Tower?", event["question"])
	assert.Equal(t, "It is 330 metres tall.", event["answer"])
}

func TestFiddlerPublishStampsMissingTimestamp(t *testing.T) {
	var captured map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	publisher := NewFiddlerPublisher(FiddlerConfig{
		BaseURL: server.URL,
		Token:   "test-token",
		ModelID: "wikichat-model",
	}, log.New(os.Stdout, "[TEST] ", log.LstdFlags))

	event := testEvent()
	event.Timestamp = 0
	require.NoError(t, publisher.Publish(context.Background(), event))

	source := captured["source"].(map[string]interface{})
	published := source["events"].([]interface{})[0].(map[string]interface{})
	assert.NotZero(t, published["timestamp"])
}

func TestFiddlerPublishFailsOnBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	publisher := NewFiddlerPublisher(FiddlerConfig{
		BaseURL: server.URL,
		Token:   "bad-token",
		ModelID: "wikichat-model",
	}, log.New(os.Stdout, "[TEST] ", log.LstdFlags))

	err := publisher.Publish(context.Background(), testEvent())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), testEvent()))
}
