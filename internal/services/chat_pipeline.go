package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"wikichat/internal/models"
	"wikichat/internal/providers"
	"wikichat/internal/repositories"
	"wikichat/internal/tracing"
)

// ChatService runs the full question-answering pipeline: condense the
// follow-up question, retrieve reference passages, assemble the context,
// build the prompt and stream the completion. Retrieval and condensation
// failures degrade the answer; only a completion failure is fatal.
type ChatService struct {
	condenser      *QuestionCondenser
	resolver       providers.QueryVectorResolver
	passages       repositories.PassageRepository
	assembler      *ContextAssembler
	prompts        *PromptBuilder
	completions    providers.CompletionProvider
	tracer         *tracing.LangSmithClient
	analytics      AnalyticsPublisher
	retrievalLimit int
	temperature    float32
	logger         *log.Logger
}

// ChatServiceConfig bundles the collaborators and tunables of the
// pipeline.
type ChatServiceConfig struct {
	Condenser      *QuestionCondenser
	Resolver       providers.QueryVectorResolver
	Passages       repositories.PassageRepository
	Assembler      *ContextAssembler
	Prompts        *PromptBuilder
	Completions    providers.CompletionProvider
	Tracer         *tracing.LangSmithClient
	Analytics      AnalyticsPublisher
	RetrievalLimit int
	Temperature    float32
	Logger         *log.Logger
}

// NewChatService creates the pipeline orchestrator.
func NewChatService(config ChatServiceConfig) *ChatService {
	if config.Analytics == nil {
		config.Analytics = NopPublisher{}
	}
	if config.RetrievalLimit <= 0 {
		config.RetrievalLimit = 4
	}

	return &ChatService{
		condenser:      config.Condenser,
		resolver:       config.Resolver,
		passages:       config.Passages,
		assembler:      config.Assembler,
		prompts:        config.Prompts,
		completions:    config.Completions,
		tracer:         config.Tracer,
		analytics:      config.Analytics,
		retrievalLimit: config.RetrievalLimit,
		temperature:    config.Temperature,
		logger:         config.Logger,
	}
}

// Answer runs the pipeline for one request and returns a streaming
// answer. The returned Answer already carries the derived context, so the
// caller can emit citation metadata before reading any fragments.
func (s *ChatService) Answer(ctx context.Context, req *models.ChatRequest) (*Answer, error) {
	latest := req.LatestMessage()
	if strings.TrimSpace(latest) == "" {
		return nil, fmt.Errorf("chat request has no question to answer")
	}

	prior := req.PriorMessages()
	standalone := s.condenser.Condense(ctx, prior, latest)

	cc := models.ConversationContext{StandaloneQuestion: standalone}
	if req.RetrievalEnabled() {
		cc = s.retrieveContext(ctx, standalone)
	} else {
		s.logger.Printf("[CHAT] Retrieval disabled for this request")
	}

	messages := s.prompts.Build(cc, FormatTranscript(prior))

	var run *tracing.Run
	if s.tracer.Configured() {
		run = s.tracer.StartRun("wikichat", map[string]interface{}{
			"question":            latest,
			"standalone_question": cc.StandaloneQuestion,
			"context":             cc.SerializedContext,
		})
	}

	stream, err := s.completions.StreamCompletion(ctx, req.LLM, messages, s.temperature)
	if err != nil {
		s.tracer.EndRun(run, nil, err)
		return nil, fmt.Errorf("failed to start completion: %w", err)
	}

	return &Answer{
		Question: latest,
		Context:  cc,
		service:  s,
		stream:   stream,
		run:      run,
	}, nil
}

// retrieveContext resolves the query vector, searches the store and
// assembles the context. Any failure along the way logs a warning and
// yields an empty context so the answer can still be generated.
func (s *ChatService) retrieveContext(ctx context.Context, standalone string) models.ConversationContext {
	cc := models.ConversationContext{StandaloneQuestion: standalone}

	query, err := s.resolver.ResolveQueryVector(ctx, standalone)
	if err != nil {
		s.logger.Printf("[CHAT] ⚠️ Query embedding failed, answering without context: %v", err)
		return cc
	}

	passages, err := s.passages.SearchPassages(ctx, query, s.retrievalLimit)
	if err != nil {
		s.logger.Printf("[CHAT] ⚠️ Retrieval failed, answering without context: %v", err)
		return cc
	}

	assembled := s.assembler.Assemble(passages)
	assembled.StandaloneQuestion = standalone
	s.logger.Printf("[CHAT] Retrieved %d passages", len(passages))
	return assembled
}

// Answer is one in-flight streamed response. Read fragments with Recv
// until io.EOF, then call TraceID for the trace identifier; Close releases
// the underlying stream.
type Answer struct {
	Question string
	Context  models.ConversationContext

	service  *ChatService
	stream   providers.CompletionStream
	run      *tracing.Run
	answer   strings.Builder
	finished bool
}

// Recv returns the next answer fragment. io.EOF marks a completed answer;
// any other error means the stream broke mid-flight.
func (a *Answer) Recv() (string, error) {
	fragment, err := a.stream.Recv()
	if err == io.EOF {
		a.finish(nil)
		return "", io.EOF
	}
	if err != nil {
		a.finish(err)
		return "", fmt.Errorf("completion stream failed: %w", err)
	}

	a.answer.WriteString(fragment)
	return fragment, nil
}

// TraceID blocks until the trace run identifier is known or ctx expires.
// It returns "" when tracing is disabled or the run was not acknowledged.
func (a *Answer) TraceID(ctx context.Context) string {
	return a.run.Wait(ctx)
}

// Close releases the completion stream.
func (a *Answer) Close() error {
	return a.stream.Close()
}

// finish closes out tracing and, for successful answers, fires the
// analytics event. Runs at most once.
func (a *Answer) finish(streamErr error) {
	if a.finished {
		return
	}
	a.finished = true

	answer := a.answer.String()
	a.service.tracer.EndRun(a.run, map[string]interface{}{"answer": answer}, streamErr)

	if streamErr != nil {
		return
	}

	event := models.AnalyticsEvent{
		Question:  a.Context.StandaloneQuestion,
		Answer:    answer,
		Documents: a.Context.SerializedContext,
		URL:       a.Context.CitationURL,
		Timestamp: time.Now().UnixMilli(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := a.service.analytics.Publish(ctx, event); err != nil {
			a.service.logger.Printf("[CHAT] ⚠️ Analytics publish failed: %v", err)
		}
	}()
}
