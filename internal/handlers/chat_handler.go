package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wikichat/internal/models"
	"wikichat/internal/services"
)

// Metadata headers carried alongside the streamed answer body. Values are
// query-escaped because Wikipedia titles and questions are not limited to
// the characters HTTP headers allow.
const (
	headerCitationURL   = "X-Citation-Url"
	headerCitationTitle = "X-Citation-Title"
	headerChatQuestion  = "X-Chat-Question"
	headerChatContext   = "X-Chat-Context"
	headerTraceID       = "X-Trace-Id"
)

// traceJoinTimeout bounds how long a finished stream waits for the trace
// run acknowledgment before giving up on the trailer.
const traceJoinTimeout = 2 * time.Second

// ChatHandler streams question answers over plain HTTP chunked responses.
type ChatHandler struct {
	chat    *services.ChatService
	tracing bool
	logger  *log.Logger
}

// NewChatHandler creates a chat handler. tracing controls whether the
// response advertises the trace id trailer.
func NewChatHandler(chat *services.ChatService, tracing bool, logger *log.Logger) *ChatHandler {
	return &ChatHandler{
		chat:    chat,
		tracing: tracing,
		logger:  logger,
	}
}

// Chat handles a chat turn
// @Summary Answer a chat question
// @Description Streams a free-text answer grounded in Wikipedia. Citation and question metadata arrive as X-* response headers; when tracing is enabled the trace id arrives as an X-Trace-Id trailer.
// @Tags chat
// @Accept json
// @Produce text/plain
// @Param request body models.ChatRequest true "Conversation so far; the last message is the question"
// @Success 200 {string} string "Streamed answer text"
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("[CHAT] Request from %s", r.RemoteAddr)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.LatestMessage()) == "" {
		h.sendError(w, http.StatusBadRequest, "Request must contain at least one message")
		return
	}

	answer, err := h.chat.Answer(r.Context(), &req)
	if err != nil {
		h.logger.Printf("[CHAT] ❌ Failed to start answer: %v", err)
		h.sendError(w, http.StatusBadGateway, "Failed to generate answer")
		return
	}
	defer answer.Close()

	// Pull the first fragment before committing headers so an immediate
	// provider failure still gets a proper error status.
	first, firstErr := answer.Recv()
	if firstErr != nil && firstErr != io.EOF {
		h.logger.Printf("[CHAT] ❌ Completion failed before first fragment: %v", firstErr)
		h.sendError(w, http.StatusBadGateway, "Failed to generate answer")
		return
	}

	h.writeEnvelopeHeaders(w, answer)
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	writeFragment := func(fragment string) bool {
		if _, err := io.WriteString(w, fragment); err != nil {
			h.logger.Printf("[CHAT] ⚠️ Client went away mid-stream: %v", err)
			return false
		}
		if canFlush {
			flusher.Flush()
		}
		return true
	}

	if firstErr != io.EOF {
		if !writeFragment(first) {
			return
		}
		for {
			fragment, err := answer.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				// Headers are already out, so a normal return would end the
				// chunked body cleanly and the client could not tell the
				// answer was cut short. Abort the connection instead.
				h.logger.Printf("[CHAT] ❌ Stream broke mid-flight: %v", err)
				panic(http.ErrAbortHandler)
			}
			if !writeFragment(fragment) {
				return
			}
		}
	}

	if h.tracing {
		ctx, cancel := context.WithTimeout(r.Context(), traceJoinTimeout)
		defer cancel()
		if traceID := answer.TraceID(ctx); traceID != "" {
			w.Header().Set(headerTraceID, traceID)
		}
	}
}

// writeEnvelopeHeaders emits the out-of-band answer metadata ahead of the
// streamed body.
func (h *ChatHandler) writeEnvelopeHeaders(w http.ResponseWriter, answer *services.Answer) {
	header := w.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")

	cc := answer.Context
	if cc.CitationURL != "" {
		header.Set(headerCitationURL, url.QueryEscape(cc.CitationURL))
		header.Set(headerCitationTitle, url.QueryEscape(cc.CitationTitle))
	}
	header.Set(headerChatQuestion, url.QueryEscape(answer.Question))
	header.Set(headerChatContext, url.QueryEscape(cc.SerializedContext))

	exposed := []string{headerCitationURL, headerCitationTitle, headerChatQuestion, headerChatContext}
	if h.tracing {
		header.Set("Trailer", headerTraceID)
		exposed = append(exposed, headerTraceID)
	}
	header.Set("Access-Control-Expose-Headers", strings.Join(exposed, ", "))
}

func (h *ChatHandler) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Message: message, Status: "error"}); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}
