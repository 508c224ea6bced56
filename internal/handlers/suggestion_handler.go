package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"wikichat/internal/models"
	"wikichat/internal/services"
)

// SuggestionHandler serves generated sample questions for the chat UI.
type SuggestionHandler struct {
	suggestions *services.SuggestionService
	logger      *log.Logger
}

// NewSuggestionHandler creates a suggestion handler.
func NewSuggestionHandler(suggestions *services.SuggestionService, logger *log.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		suggestions: suggestions,
		logger:      logger,
	}
}

// Suggestions handles sample question requests
// @Summary Suggested questions
// @Description Returns newline-separated sample questions generated from recently updated Wikipedia pages
// @Tags chat
// @Produce text/plain
// @Success 200 {string} string "One question per line"
// @Failure 502 {object} models.ErrorResponse
// @Router /api/suggestions [get]
func (h *SuggestionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	questions, cached, err := h.suggestions.SuggestedQuestions(r.Context())
	if err != nil {
		h.logger.Printf("[SUGGESTIONS] ❌ %v", err)
		h.sendError(w, http.StatusBadGateway, "Failed to generate suggestions")
		return
	}

	if cached {
		h.logger.Printf("[SUGGESTIONS] Served from cache")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, questions)
}

func (h *SuggestionHandler) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Message: message, Status: "error"}); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}
