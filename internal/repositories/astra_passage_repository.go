package repositories

import (
	"context"
	"fmt"

	"wikichat/internal/db"
	"wikichat/internal/models"
	"wikichat/internal/providers"
)

// AstraPassageRepository implements PassageRepository over the Astra DB
// Data API. It supports both client-side embeddings ($vector sort) and
// server-side embedding of raw query text ($vectorize sort).
type AstraPassageRepository struct {
	client     *db.AstraClient
	collection string
}

// NewAstraPassageRepository creates an Astra-backed passage repository
func NewAstraPassageRepository(client *db.AstraClient, collection string) PassageRepository {
	return &AstraPassageRepository{
		client:     client,
		collection: collection,
	}
}

// SearchPassages returns the nearest stored passages for the query
func (r *AstraPassageRepository) SearchPassages(ctx context.Context, query providers.QueryVector, limit int) ([]models.RetrievedPassage, error) {
	opts := db.FindOptions{
		Projection: map[string]int{
			"title":   1,
			"url":     1,
			"content": 1,
		},
		Limit: limit,
	}
	if query.Passthrough() {
		opts.Vectorize = query.Text
	} else {
		opts.Vector = query.Vector
	}

	docs, err := r.client.Find(ctx, r.collection, opts)
	if err != nil {
		return nil, NewRetrievalError("search_passages", err,
			fmt.Sprintf("similarity search failed on collection %s", r.collection))
	}

	passages := make([]models.RetrievedPassage, 0, len(docs))
	for i, doc := range docs {
		passages = append(passages, models.RetrievedPassage{
			Title:          stringField(doc, "title"),
			URL:            stringField(doc, "url"),
			Content:        stringField(doc, "content"),
			SimilarityRank: i,
		})
	}

	return passages, nil
}

// Ping checks if the Data API is reachable
func (r *AstraPassageRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx); err != nil {
		return NewRetrievalError("ping", err, "")
	}
	return nil
}

// Close closes the underlying client
func (r *AstraPassageRepository) Close() error {
	r.client.Close()
	return nil
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
