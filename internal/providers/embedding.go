package providers

import (
	"context"
)

// EmbeddingProvider turns free text into a fixed-length vector. Dimension
// is fixed per provider/model pair. Implementations are stateless and safe
// for concurrent use.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// QueryVector carries the retrieval input in one of two forms: a
// client-side embedding, or the raw query text for backends that embed
// server-side. Exactly one of the two is populated.
type QueryVector struct {
	Vector []float32
	Text   string
}

// Passthrough reports whether the backend should embed the text itself.
func (q QueryVector) Passthrough() bool {
	return len(q.Vector) == 0
}

// QueryVectorResolver produces the retrieval input for a query string.
type QueryVectorResolver interface {
	ResolveQueryVector(ctx context.Context, text string) (QueryVector, error)
}

type embedResolver struct {
	provider EmbeddingProvider
}

// NewEmbedResolver resolves queries by calling an embedding provider.
func NewEmbedResolver(provider EmbeddingProvider) QueryVectorResolver {
	return &embedResolver{provider: provider}
}

func (r *embedResolver) ResolveQueryVector(ctx context.Context, text string) (QueryVector, error) {
	vector, err := r.provider.Embed(ctx, text)
	if err != nil {
		return QueryVector{}, err
	}
	return QueryVector{Vector: vector}, nil
}

type passthroughResolver struct{}

// NewPassthroughResolver resolves queries to their raw text, for retrieval
// backends that embed server-side.
func NewPassthroughResolver() QueryVectorResolver {
	return passthroughResolver{}
}

func (passthroughResolver) ResolveQueryVector(_ context.Context, text string) (QueryVector, error) {
	return QueryVector{Text: text}, nil
}
