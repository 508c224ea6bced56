package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"wikichat/internal/models"
	"wikichat/internal/services"
)

// AnalyticsHandler accepts chat feedback events from the frontend and
// forwards them to the analytics backend.
type AnalyticsHandler struct {
	publisher services.AnalyticsPublisher
	logger    *log.Logger
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(publisher services.AnalyticsPublisher, logger *log.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// Publish handles analytics events
// @Summary Publish a chat event
// @Description Forwards a completed chat turn to the analytics backend
// @Tags analytics
// @Accept json
// @Produce json
// @Param event body models.AnalyticsEvent true "Chat event"
// @Success 202 {object} models.BasicResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /api/analytics [post]
func (h *AnalyticsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var event models.AnalyticsEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(event.Question) == "" || strings.TrimSpace(event.Answer) == "" {
		h.sendError(w, http.StatusBadRequest, "Event must contain a question and an answer")
		return
	}

	if err := h.publisher.Publish(r.Context(), event); err != nil {
		h.logger.Printf("[ANALYTICS] ❌ %v", err)
		h.sendError(w, http.StatusBadGateway, "Failed to publish event")
		return
	}

	h.sendJSON(w, http.StatusAccepted, models.BasicResponse{
		Message: "Event accepted",
		Status:  "success",
	})
}

func (h *AnalyticsHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *AnalyticsHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, models.ErrorResponse{Message: message, Status: "error"})
}
