package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"wikichat/internal/handlers"
)

// Handlers bundles every handler the router needs.
type Handlers struct {
	Chat        *handlers.ChatHandler
	Suggestions *handlers.SuggestionHandler
	Analytics   *handlers.AnalyticsHandler
	Config      *handlers.ConfigHandler
	LLM         *handlers.LLMHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", handlers.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc("/llm/health", h.LLM.HealthCheck).Methods(http.MethodGet)

	// Chat API
	router.HandleFunc("/api/chat", h.Chat.Chat).Methods(http.MethodPost)
	router.HandleFunc("/api/suggestions", h.Suggestions.Suggestions).Methods(http.MethodGet)
	router.HandleFunc("/api/config", h.Config.GetConfig).Methods(http.MethodGet)
	router.HandleFunc("/api/analytics", h.Analytics.Publish).Methods(http.MethodPost)

	// Main routes
	router.HandleFunc("/", handlers.HomeHandler).Methods(http.MethodGet)
}
