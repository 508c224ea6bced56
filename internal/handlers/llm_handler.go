package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"wikichat/internal/models"
	"wikichat/internal/providers"
)

// LLMHandler exposes a liveness probe for the completion provider.
type LLMHandler struct {
	completions providers.CompletionProvider
	logger      *log.Logger
}

// NewLLMHandler creates an LLM health handler.
func NewLLMHandler(completions providers.CompletionProvider, logger *log.Logger) *LLMHandler {
	return &LLMHandler{
		completions: completions,
		logger:      logger,
	}
}

// HealthCheck handles LLM health requests
// @Summary LLM health check
// @Description Runs a minimal completion against the configured model to verify connectivity
// @Tags general
// @Produce json
// @Success 200 {object} models.BasicResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /llm/health [get]
func (h *LLMHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	_, err := h.completions.Complete(ctx, "", []models.ChatMessage{
		{Role: models.RoleUser, Content: "ping"},
	}, 0)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.logger.Printf("[LLM] ❌ Health check failed: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Message: "LLM is unreachable",
			Status:  "error",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.BasicResponse{
		Message: "LLM is reachable",
		Status:  "success",
	})
}
