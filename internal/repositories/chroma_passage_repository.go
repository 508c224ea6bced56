package repositories

import (
	"context"

	"wikichat/internal/db"
	"wikichat/internal/models"
	"wikichat/internal/providers"
)

// ChromaPassageRepository implements PassageRepository over a local
// ChromaDB instance. Chroma has no server-side embedding, so queries must
// arrive as client-side vectors; passage title and url live in chunk
// metadata, content in the document body.
type ChromaPassageRepository struct {
	client     *db.ChromaDBClient
	collection string
}

// NewChromaPassageRepository creates a ChromaDB-backed passage repository
func NewChromaPassageRepository(client *db.ChromaDBClient, collection string) PassageRepository {
	return &ChromaPassageRepository{
		client:     client,
		collection: collection,
	}
}

// SearchPassages returns the nearest stored passages for the query
func (r *ChromaPassageRepository) SearchPassages(ctx context.Context, query providers.QueryVector, limit int) ([]models.RetrievedPassage, error) {
	if query.Passthrough() {
		return nil, EmbeddingUnavailableError("chromadb")
	}

	results, err := r.client.Query(ctx, r.collection, [][]float32{query.Vector}, limit, nil)
	if err != nil {
		return nil, NewRetrievalError("search_passages", err, "query failed")
	}

	passages := make([]models.RetrievedPassage, 0)
	if len(results.IDs) > 0 {
		for i := range results.IDs[0] {
			var content string
			if len(results.Documents) > 0 && len(results.Documents[0]) > i {
				content = results.Documents[0][i]
			}

			metadata := map[string]interface{}{}
			if len(results.Metadatas) > 0 && len(results.Metadatas[0]) > i {
				metadata = results.Metadatas[0][i]
			}

			passages = append(passages, models.RetrievedPassage{
				Title:          stringField(metadata, "title"),
				URL:            stringField(metadata, "url"),
				Content:        content,
				SimilarityRank: i,
			})
		}
	}

	return passages, nil
}

// Ping checks if ChromaDB is alive
func (r *ChromaPassageRepository) Ping(ctx context.Context) error {
	if err := r.client.Heartbeat(ctx); err != nil {
		return NewRetrievalError("ping", err, "ChromaDB heartbeat failed")
	}
	return nil
}

// Close closes the ChromaDB client
func (r *ChromaPassageRepository) Close() error {
	r.client.Close()
	return nil
}
