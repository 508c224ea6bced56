package repositories

import (
	"context"

	"wikichat/internal/models"
	"wikichat/internal/providers"
)

// PassageRepository defines the interface for vector-similarity retrieval.
// This abstracts the vector store and allows implementations to be swapped
// by configuration. Results come back nearest first, at most limit entries,
// possibly empty. The repository is agnostic to the similarity metric the
// corpus was built with; it only preserves the backend's ordering.
type PassageRepository interface {
	SearchPassages(ctx context.Context, query providers.QueryVector, limit int) ([]models.RetrievedPassage, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// RetrievalError represents errors from a passage repository
type RetrievalError struct {
	Operation string
	Err       error
	Message   string
}

func (e *RetrievalError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// NewRetrievalError creates a new retrieval error
func NewRetrievalError(operation string, err error, message string) *RetrievalError {
	return &RetrievalError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}

// Common error constructors
func EmbeddingUnavailableError(backend string) error {
	return NewRetrievalError(
		"resolve_query_vector",
		nil,
		backend+" requires a client-side embedding; server-side embedding is not supported",
	)
}
