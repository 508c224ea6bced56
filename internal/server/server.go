package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"wikichat/internal/config"
	"wikichat/internal/db"
	"wikichat/internal/handlers"
	"wikichat/internal/providers"
	"wikichat/internal/repositories"
	"wikichat/internal/routes"
	"wikichat/internal/services"
	"wikichat/internal/tracing"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewServer wires the full pipeline from configuration and returns a
// server ready to listen.
func NewServer(cfg *config.Config) *http.Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)

	completions := providers.NewOpenAICompletions(cfg.OpenAIAPIKey, cfg.DefaultChatModel)
	resolver := initializeResolver(cfg, logger)

	// The Astra client also backs the suggestion service, so it exists
	// even when retrieval runs against ChromaDB.
	astraClient := db.NewAstraClient(db.AstraConfig{
		Endpoint: cfg.Astra.Endpoint,
		Token:    cfg.Astra.Token,
		Keyspace: cfg.Astra.Keyspace,
		Timeout:  cfg.Astra.Timeout,
	})
	passageRepo := initializePassageRepository(cfg, astraClient, logger)

	tracer := tracing.NewLangSmithClient(tracing.LangSmithConfig{
		BaseURL: cfg.LangSmith.BaseURL,
		APIKey:  cfg.LangSmith.APIKey,
		Project: cfg.LangSmith.Project,
	}, logger)
	if tracer.Configured() {
		logger.Println("✅ LangSmith tracing enabled")
	}

	var publisher services.AnalyticsPublisher = services.NopPublisher{}
	if cfg.Fiddler.Configured() {
		publisher = services.NewFiddlerPublisher(services.FiddlerConfig{
			BaseURL: cfg.Fiddler.BaseURL,
			Token:   cfg.Fiddler.Token,
			ModelID: cfg.Fiddler.ModelID,
		}, logger)
		logger.Println("✅ Fiddler analytics forwarding enabled")
	}

	chatService := services.NewChatService(services.ChatServiceConfig{
		Condenser:      services.NewQuestionCondenser(completions, cfg.CondenseModel, logger),
		Resolver:       resolver,
		Passages:       passageRepo,
		Assembler:      services.NewContextAssembler(cfg.MaxSentencesPerPassage, logger),
		Prompts:        services.NewPromptBuilder(cfg.RefusalMessage),
		Completions:    completions,
		Tracer:         tracer,
		Analytics:      publisher,
		RetrievalLimit: cfg.RetrievalLimit,
		Temperature:    cfg.Temperature,
		Logger:         logger,
	})

	suggestionService := services.NewSuggestionService(
		astraClient,
		cfg.Astra.SuggestionsCollection,
		completions,
		cfg.CondenseModel,
		initializeCache(cfg, logger),
		cfg.SuggestionsCacheTTL,
		logger,
	)

	h := &routes.Handlers{
		Chat:        handlers.NewChatHandler(chatService, tracer.Configured(), logger),
		Suggestions: handlers.NewSuggestionHandler(suggestionService, logger),
		Analytics:   handlers.NewAnalyticsHandler(publisher, logger),
		Config:      handlers.NewConfigHandler(cfg.Astra.Collection, tracer.Configured(), logger),
		LLM:         handlers.NewLLMHandler(completions, logger),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	// Add Swagger endpoints
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // The url pointing to API definition
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	))

	return &http.Server{
		Addr:    cfg.Addr,
		Handler: corsMiddleware(router),
	}
}

// initializeResolver picks how question embeddings are produced. The
// "astra" provider defers embedding to the store's $vectorize support.
func initializeResolver(cfg *config.Config, logger *log.Logger) providers.QueryVectorResolver {
	switch cfg.EmbeddingProvider {
	case "openai":
		logger.Printf("Using OpenAI embeddings: %s", cfg.OpenAIEmbeddingModel)
		return providers.NewEmbedResolver(providers.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel))
	case "astra":
		logger.Println("Using server-side embeddings ($vectorize)")
		return providers.NewPassthroughResolver()
	default:
		logger.Printf("Using Cohere embeddings: %s", cfg.CohereModel)
		return providers.NewEmbedResolver(providers.NewCohereEmbedder(providers.CohereConfig{
			APIKey:  cfg.CohereAPIKey,
			Model:   cfg.CohereModel,
			BaseURL: cfg.CohereBaseURL,
		}))
	}
}

// initializePassageRepository picks the vector store backend.
func initializePassageRepository(cfg *config.Config, astraClient *db.AstraClient, logger *log.Logger) repositories.PassageRepository {
	if cfg.VectorBackend == "chroma" {
		logger.Printf("Connecting to ChromaDB: %s:%d", cfg.Chroma.Host, cfg.Chroma.Port)

		chromaClient := db.NewChromaDBClient(db.ChromaDBConfig{
			Host:     cfg.Chroma.Host,
			Port:     cfg.Chroma.Port,
			Tenant:   cfg.Chroma.Tenant,
			Database: cfg.Chroma.Database,
			Timeout:  cfg.Chroma.Timeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := chromaClient.Heartbeat(ctx); err != nil {
			logger.Printf("⚠️  ChromaDB connection failed: %v", err)
			logger.Println("   Hint: Ensure ChromaDB is running (docker run -d -p 8000:8000 chromadb/chroma)")
		} else {
			logger.Println("✅ ChromaDB connected successfully")
		}

		return repositories.NewChromaPassageRepository(chromaClient, cfg.Chroma.Collection)
	}

	logger.Printf("Using Astra DB collection: %s", cfg.Astra.Collection)
	return repositories.NewAstraPassageRepository(astraClient, cfg.Astra.Collection)
}

// initializeCache connects the suggestion cache. A missing Redis is not
// fatal; suggestions are simply regenerated on every request.
func initializeCache(cfg *config.Config, logger *log.Logger) *db.RedisClient {
	redisConfig := db.DefaultRedisConfig()
	redisConfig.Host = cfg.Redis.Host
	redisConfig.Port = cfg.Redis.Port
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB
	redisConfig.PoolSize = cfg.Redis.PoolSize

	redisClient, err := db.NewRedisClient(redisConfig)
	if err != nil {
		logger.Printf("⚠️  Failed to create Redis client: %v", err)
		logger.Println("   Suggestion caching disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Printf("⚠️  Redis connection failed: %v", err)
		logger.Println("   Suggestion caching disabled")
		logger.Println("   Hint: Ensure Redis is running (docker run -d -p 6379:6379 redis:7-alpine)")
		return nil
	}

	logger.Println("✅ Redis connected successfully")
	return redisClient
}
