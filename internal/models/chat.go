package models

// Message roles as they appear on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// ChatRequest represents the incoming chat request from the frontend.
// The last element of Messages is always the question awaiting an answer.
type ChatRequest struct {
	Messages         []ChatMessage `json:"messages"`
	LLM              string        `json:"llm,omitempty"`              // Model identifier, empty = server default
	UseRetrieval     *bool         `json:"useRetrieval,omitempty"`     // nil/true = retrieval enabled
	SimilarityMetric string        `json:"similarityMetric,omitempty"` // Informational; the corpus fixed it at build time
}

// RetrievalEnabled reports whether retrieval should run for this request.
// Retrieval defaults to on when the field is absent.
func (r *ChatRequest) RetrievalEnabled() bool {
	return r.UseRetrieval == nil || *r.UseRetrieval
}

// LatestMessage returns the content of the message awaiting an answer,
// or "" when the conversation is empty.
func (r *ChatRequest) LatestMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// PriorMessages returns every message before the one awaiting an answer.
func (r *ChatRequest) PriorMessages() []ChatMessage {
	if len(r.Messages) == 0 {
		return nil
	}
	return r.Messages[:len(r.Messages)-1]
}

// RetrievedPassage is one unit of reference text returned by the vector
// retriever. Passages are request-scoped and never persisted.
type RetrievedPassage struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	Content        string `json:"content"`
	SimilarityRank int    `json:"similarity_rank"` // 0 = nearest
}

// ConversationContext is the request-scoped value the pipeline derives
// before invoking the completion model. Built once per request.
type ConversationContext struct {
	StandaloneQuestion string
	SerializedContext  string
	CitationURL        string
	CitationTitle      string
}

// ErrorResponse is the JSON body returned for non-streaming failures.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"` // always "error"
}

// ConfigResponse reports the client-facing deployment configuration.
type ConfigResponse struct {
	EmbeddingCollection string `json:"embedding_collection"`
	TracingEnabled      bool   `json:"tracing_enabled"`
}

// BasicResponse is the generic status payload for health endpoints.
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// AnalyticsEvent is the payload forwarded to the analytics collaborator
// after a chat turn completes.
type AnalyticsEvent struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Documents string `json:"documents"` // The raw serialized context
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}
