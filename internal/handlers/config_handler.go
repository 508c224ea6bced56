package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"wikichat/internal/models"
)

// ConfigHandler reports the deployment configuration the frontend needs.
type ConfigHandler struct {
	collection string
	tracing    bool
	logger     *log.Logger
}

// NewConfigHandler creates a config handler.
func NewConfigHandler(collection string, tracing bool, logger *log.Logger) *ConfigHandler {
	return &ConfigHandler{
		collection: collection,
		tracing:    tracing,
		logger:     logger,
	}
}

// GetConfig handles config requests
// @Summary Client configuration
// @Description Returns the embedding collection in use and whether tracing is enabled
// @Tags general
// @Produce json
// @Success 200 {object} models.ConfigResponse
// @Router /api/config [get]
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	response := models.ConfigResponse{
		EmbeddingCollection: h.collection,
		TracingEnabled:      h.tracing,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}
