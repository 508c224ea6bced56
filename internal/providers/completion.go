package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"wikichat/internal/models"
)

// CompletionProvider invokes a chat-completion model. Implementations are
// stateless and safe for concurrent use; per-request state lives in the
// returned stream.
type CompletionProvider interface {
	// Complete runs a non-streaming completion and returns the single
	// textual reply. A zero temperature leaves the provider default in
	// place. Used for question condensation and suggestion generation.
	Complete(ctx context.Context, model string, messages []models.ChatMessage, temperature float32) (string, error)

	// StreamCompletion starts a streaming completion. The returned stream
	// is finite and not restartable; a fresh call may yield a different
	// answer, which is expected.
	StreamCompletion(ctx context.Context, model string, messages []models.ChatMessage, temperature float32) (CompletionStream, error)
}

// CompletionStream is an ordered sequence of text fragments. Recv returns
// io.EOF when the model signals end of turn. ID returns the provider's
// completion identifier once the first fragment has arrived.
type CompletionStream interface {
	Recv() (string, error)
	ID() string
	Close() error
}

// OpenAICompletions implements CompletionProvider over the OpenAI chat API.
type OpenAICompletions struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAICompletions creates a completion provider with a fallback model
// used when a request carries no model identifier.
func NewOpenAICompletions(apiKey, defaultModel string) *OpenAICompletions {
	if defaultModel == "" {
		defaultModel = "gpt-4"
	}
	return &OpenAICompletions{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
	}
}

// DefaultModel returns the fallback model identifier
func (o *OpenAICompletions) DefaultModel() string {
	return o.defaultModel
}

// Complete runs a non-streaming chat completion
func (o *OpenAICompletions) Complete(ctx context.Context, model string, messages []models.ChatMessage, temperature float32) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.resolveModel(model),
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// StreamCompletion starts a streaming chat completion
func (o *OpenAICompletions) StreamCompletion(ctx context.Context, model string, messages []models.ChatMessage, temperature float32) (CompletionStream, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       o.resolveModel(model),
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}

	return &openAIStream{stream: stream}, nil
}

func (o *OpenAICompletions) resolveModel(model string) string {
	if model == "" {
		return o.defaultModel
	}
	return model
}

func toOpenAIMessages(messages []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return out
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
	id     string
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			// io.EOF passes through as the end-of-turn signal.
			return "", err
		}

		if s.id == "" {
			s.id = resp.ID
		}

		// Role-only and finish-reason chunks carry no text; skip them and
		// let the terminating io.EOF surface on the next read.
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) ID() string {
	return s.id
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}
