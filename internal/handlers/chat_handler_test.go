package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikichat/internal/models"
	"wikichat/internal/providers"
	"wikichat/internal/services"
	"wikichat/internal/tracing"
)

// ============================================================================
// Stubs
// ============================================================================

// stubStream replays fragments, then failErr or io.EOF.
type stubStream struct {
	fragments []string
	failErr   error
	pos       int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		fragment := s.fragments[s.pos]
		s.pos++
		return fragment, nil
	}
	if s.failErr != nil {
		return "", s.failErr
	}
	return "", io.EOF
}

func (s *stubStream) ID() string   { return "cmpl-test" }
func (s *stubStream) Close() error { return nil }

type stubCompletions struct {
	fragments []string
	startErr  error
	streamErr error
}

func (s *stubCompletions) Complete(ctx context.Context, model string, messages []models.ChatMessage, temperature float32) (string, error) {
	return "standalone question", nil
}

func (s *stubCompletions) StreamCompletion(ctx context.Context, model string, messages []models.ChatMessage, temperature float32) (providers.CompletionStream, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &stubStream{fragments: s.fragments, failErr: s.streamErr}, nil
}

type stubPassages struct {
	passages []models.RetrievedPassage
	err      error
}

func (s *stubPassages) SearchPassages(ctx context.Context, query providers.QueryVector, limit int) ([]models.RetrievedPassage, error) {
	return s.passages, s.err
}

func (s *stubPassages) Ping(ctx context.Context) error { return nil }
func (s *stubPassages) Close() error                   { return nil }

// ============================================================================
// Test Setup
// ============================================================================

func wikiPassages() []models.RetrievedPassage {
	return []models.RetrievedPassage{
		{
			Title:   "Eiffel Tower",
			URL:     "https://en.wikipedia.org/wiki/Eiffel_Tower",
			Content: "The tower is 330 metres tall.",
		},
	}
}

func setupChatHandler(t *testing.T, completions *stubCompletions, passages *stubPassages, tracer *tracing.LangSmithClient) *ChatHandler {
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)

	service := services.NewChatService(services.ChatServiceConfig{
		Condenser:   services.NewQuestionCondenser(completions, "gpt-3.5-turbo", logger),
		Resolver:    providers.NewPassthroughResolver(),
		Passages:    passages,
		Assembler:   services.NewContextAssembler(0, logger),
		Prompts:     services.NewPromptBuilder(""),
		Completions: completions,
		Tracer:      tracer,
		Temperature: 0.5,
		Logger:      logger,
	})

	return NewChatHandler(service, tracer.Configured(), logger)
}

func chatRequestBody(t *testing.T, question string) *bytes.Buffer {
	body, err := json.Marshal(models.ChatRequest{
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: question},
		},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

// ============================================================================
// Tests
// ============================================================================

func TestChatStreamsAnswerWithMetadataHeaders(t *testing.T) {
	completions := &stubCompletions{fragments: []string{"The tower ", "is 330 metres tall."}}
	handler := setupChatHandler(t, completions, &stubPassages{passages: wikiPassages()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "How tall is the Eiffel Tower?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "The tower is 330 metres tall.", rec.Body.String())

	citation, err := url.QueryUnescape(rec.Header().Get("X-Citation-Url"))
	require.NoError(t, err)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Eiffel_Tower", citation)

	question, err := url.QueryUnescape(rec.Header().Get("X-Chat-Question"))
	require.NoError(t, err)
	assert.Equal(t, "How tall is the Eiffel Tower?", question)

	chatContext, err := url.QueryUnescape(rec.Header().Get("X-Chat-Context"))
	require.NoError(t, err)
	assert.Contains(t, chatContext, "Title: Eiffel Tower")

	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "X-Citation-Url")
	assert.Contains(t, exposed, "X-Chat-Question")
}

func TestChatEscapesNonASCIITitles(t *testing.T) {
	passages := []models.RetrievedPassage{
		{
			Title:   "Łódź",
			URL:     "https://en.wikipedia.org/wiki/%C5%81%C3%B3d%C5%BA",
			Content: "Łódź is a city in central Poland.",
		},
	}
	completions := &stubCompletions{fragments: []string{"It is in Poland."}}
	handler := setupChatHandler(t, completions, &stubPassages{passages: passages}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "Where is Łódź?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	rawTitle := rec.Header().Get("X-Citation-Title")
	for _, r := range rawTitle {
		assert.Less(t, r, rune(128), "header value must stay ASCII")
	}
	title, err := url.QueryUnescape(rawTitle)
	require.NoError(t, err)
	assert.Equal(t, "Łódź", title)
}

func TestChatOmitsCitationHeadersWithoutContext(t *testing.T) {
	completions := &stubCompletions{fragments: []string{"From general knowledge."}}
	handler := setupChatHandler(t, completions, &stubPassages{passages: nil}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "What color is the sky?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Citation-Url"))
	assert.Empty(t, rec.Header().Get("X-Citation-Title"))
	assert.NotEmpty(t, rec.Header().Get("X-Chat-Question"))
}

func TestChatRejectsInvalidBody(t *testing.T) {
	handler := setupChatHandler(t, &stubCompletions{}, &stubPassages{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	handler := setupChatHandler(t, &stubCompletions{}, &stubPassages{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatReturnsBadGatewayWhenCompletionCannotStart(t *testing.T) {
	completions := &stubCompletions{startErr: io.ErrUnexpectedEOF}
	handler := setupChatHandler(t, completions, &stubPassages{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "How tall is the Eiffel Tower?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatReturnsBadGatewayWhenStreamFailsImmediately(t *testing.T) {
	completions := &stubCompletions{streamErr: io.ErrUnexpectedEOF}
	handler := setupChatHandler(t, completions, &stubPassages{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "How tall is the Eiffel Tower?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatAbortsConnectionOnMidFlightFailure(t *testing.T) {
	completions := &stubCompletions{fragments: []string{"partial "}, streamErr: io.ErrUnexpectedEOF}
	handler := setupChatHandler(t, completions, &stubPassages{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "How tall is the Eiffel Tower?"))
	rec := httptest.NewRecorder()

	// Headers were already committed, so the handler aborts the connection
	// instead of letting the truncated body end cleanly.
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.Chat(rec, req)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial ", rec.Body.String())
}

func TestChatDeliversTraceIDAsTrailer(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer backend.Close()

	tracer := tracing.NewLangSmithClient(tracing.LangSmithConfig{
		BaseURL: backend.URL,
		APIKey:  "test-key",
		Project: "wikichat-test",
	}, log.New(os.Stdout, "[TEST] ", log.LstdFlags))

	completions := &stubCompletions{fragments: []string{"330 metres"}}
	handler := setupChatHandler(t, completions, &stubPassages{passages: wikiPassages()}, tracer)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "How tall is the Eiffel Tower?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "X-Trace-Id", rec.Header().Get("Trailer"))

	result := rec.Result()
	assert.NotEmpty(t, result.Trailer.Get("X-Trace-Id"))
}

func TestChatWithoutTracingOmitsTrailer(t *testing.T) {
	completions := &stubCompletions{fragments: []string{"330 metres"}}
	handler := setupChatHandler(t, completions, &stubPassages{passages: wikiPassages()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", chatRequestBody(t, "How tall is the Eiffel Tower?"))
	rec := httptest.NewRecorder()

	handler.Chat(rec, req)

	assert.Empty(t, rec.Header().Get("Trailer"))
}
