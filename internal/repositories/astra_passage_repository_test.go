package repositories

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikichat/internal/db"
	"wikichat/internal/providers"
)

func newAstraRepository(t *testing.T, handler http.HandlerFunc) PassageRepository {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := db.NewAstraClient(db.AstraConfig{
		Endpoint: server.URL,
		Token:    "AstraCS:test",
	})

	return NewAstraPassageRepository(client, "article_embeddings")
}

func TestSearchPassagesRanksByOrder(t *testing.T) {
	var command map[string]interface{}

	repo := newAstraRepository(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&command))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"documents": []map[string]interface{}{
					{"title": "Eiffel Tower", "url": "https://en.wikipedia.org/wiki/Eiffel_Tower", "content": "330 metres"},
					{"title": "Gustave Eiffel", "url": "https://en.wikipedia.org/wiki/Gustave_Eiffel", "content": "French engineer"},
				},
			},
		})
	})

	passages, err := repo.SearchPassages(context.Background(),
		providers.QueryVector{Vector: []float32{0.1, 0.2}}, 4)

	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "Eiffel Tower", passages[0].Title)
	assert.Equal(t, 0, passages[0].SimilarityRank)
	assert.Equal(t, 1, passages[1].SimilarityRank)

	find := command["find"].(map[string]interface{})
	sort := find["sort"].(map[string]interface{})
	assert.Contains(t, sort, "$vector")
	projection := find["projection"].(map[string]interface{})
	assert.Contains(t, projection, "title")
	assert.Contains(t, projection, "url")
	assert.Contains(t, projection, "content")
}

func TestSearchPassagesPassthroughUsesVectorize(t *testing.T) {
	var command map[string]interface{}

	repo := newAstraRepository(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&command))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"documents": []map[string]interface{}{}},
		})
	})

	passages, err := repo.SearchPassages(context.Background(),
		providers.QueryVector{Text: "How tall is the Eiffel Tower?"}, 4)

	require.NoError(t, err)
	assert.Empty(t, passages)

	sort := command["find"].(map[string]interface{})["sort"].(map[string]interface{})
	assert.Equal(t, "How tall is the Eiffel Tower?", sort["$vectorize"])
}

func TestSearchPassagesWrapsStoreFailure(t *testing.T) {
	repo := newAstraRepository(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := repo.SearchPassages(context.Background(),
		providers.QueryVector{Vector: []float32{0.1}}, 4)

	require.Error(t, err)
	var retrievalErr *RetrievalError
	assert.ErrorAs(t, err, &retrievalErr)
	assert.Equal(t, "search_passages", retrievalErr.Operation)
}

func TestSearchPassagesToleratesMissingFields(t *testing.T) {
	repo := newAstraRepository(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"documents": []map[string]interface{}{
					{"content": "orphan chunk with no metadata"},
				},
			},
		})
	})

	passages, err := repo.SearchPassages(context.Background(),
		providers.QueryVector{Vector: []float32{0.1}}, 4)

	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Empty(t, passages[0].Title)
	assert.Empty(t, passages[0].URL)
	assert.Equal(t, "orphan chunk with no metadata", passages[0].Content)
}
