package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every setting the server reads from the environment.
// Values come from env vars with sensible defaults; secrets (API keys,
// tokens) have no defaults and gate the features that need them.
type Config struct {
	Addr string

	// Completion model
	OpenAIAPIKey     string
	DefaultChatModel string  // Used when the request carries no "llm" value
	CondenseModel    string  // Model used for question condensation
	Temperature      float32 // Answer generation temperature

	// Embeddings
	EmbeddingProvider    string // "cohere", "openai", or "astra" (server-side)
	CohereAPIKey         string
	CohereModel          string
	CohereBaseURL        string
	OpenAIEmbeddingModel string

	// Vector store
	VectorBackend  string // "astra" or "chroma"
	Astra          AstraConfig
	Chroma         ChromaConfig
	RetrievalLimit int

	// Context assembly
	MaxSentencesPerPassage int

	// Prompt
	RefusalMessage string // Optional fixed refusal sentence; empty disables it

	// Redis (suggestion cache)
	Redis RedisConfig

	// LangSmith tracing (optional)
	LangSmith LangSmithConfig

	// Fiddler analytics forwarding (optional)
	Fiddler FiddlerConfig

	SuggestionsCacheTTL time.Duration
}

// AstraConfig holds connection settings for the Astra DB Data API.
type AstraConfig struct {
	Endpoint              string
	Token                 string
	Keyspace              string
	Collection            string
	SuggestionsCollection string
	Timeout               time.Duration
}

// ChromaConfig holds connection settings for a local ChromaDB instance.
type ChromaConfig struct {
	Host       string
	Port       int
	Tenant     string
	Database   string
	Collection string
	Timeout    time.Duration
}

// RedisConfig holds connection settings for Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// LangSmithConfig holds settings for run tracing. Tracing is enabled
// only when APIKey is set.
type LangSmithConfig struct {
	APIKey  string
	BaseURL string
	Project string
}

// Configured reports whether tracing credentials are present.
func (c LangSmithConfig) Configured() bool {
	return c.APIKey != ""
}

// FiddlerConfig holds settings for the analytics collaborator. Forwarding
// is enabled only when BaseURL and Token are set.
type FiddlerConfig struct {
	BaseURL string
	Token   string
	ModelID string
}

// Configured reports whether analytics forwarding is set up.
func (c FiddlerConfig) Configured() bool {
	return c.BaseURL != "" && c.Token != ""
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Addr: getEnv("SERVER_ADDR", ":8080"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		DefaultChatModel: getEnv("CHAT_DEFAULT_MODEL", "gpt-4"),
		CondenseModel:    getEnv("CHAT_CONDENSE_MODEL", "gpt-3.5-turbo"),
		Temperature:      0.5,

		EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "cohere"),
		CohereAPIKey:         os.Getenv("COHERE_API_KEY"),
		CohereModel:          getEnv("COHERE_EMBEDDING_MODEL", "embed-english-light-v3.0"),
		CohereBaseURL:        getEnv("COHERE_BASE_URL", "https://api.cohere.ai"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		VectorBackend: getEnv("VECTOR_BACKEND", "astra"),
		Astra: AstraConfig{
			Endpoint:              os.Getenv("ASTRA_DB_ENDPOINT"),
			Token:                 os.Getenv("ASTRA_DB_APPLICATION_TOKEN"),
			Keyspace:              getEnv("ASTRA_DB_KEYSPACE", "default_keyspace"),
			Collection:            getEnv("ASTRA_DB_COLLECTION", "article_embeddings"),
			SuggestionsCollection: getEnv("ASTRA_DB_SUGGESTIONS_COLLECTION", "article_suggestions"),
			Timeout:               getEnvDuration("ASTRA_DB_TIMEOUT", 30*time.Second),
		},
		Chroma: ChromaConfig{
			Host:       getEnv("CHROMA_HOST", "localhost"),
			Port:       getEnvInt("CHROMA_PORT", 8000),
			Tenant:     getEnv("CHROMA_TENANT", "default_tenant"),
			Database:   getEnv("CHROMA_DATABASE", "default_database"),
			Collection: getEnv("CHROMA_COLLECTION", "article_embeddings"),
			Timeout:    getEnvDuration("CHROMA_TIMEOUT", 30*time.Second),
		},
		RetrievalLimit: getEnvInt("RETRIEVAL_LIMIT", 4),

		MaxSentencesPerPassage: getEnvInt("CONTEXT_MAX_SENTENCES", 12),

		RefusalMessage: os.Getenv("CHAT_REFUSAL_MESSAGE"),

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},

		LangSmith: LangSmithConfig{
			APIKey:  os.Getenv("LANGSMITH_API_KEY"),
			BaseURL: getEnv("LANGSMITH_BASE_URL", "https://api.smith.langchain.com"),
			Project: getEnv("LANGSMITH_PROJECT", "wikichat"),
		},

		Fiddler: FiddlerConfig{
			BaseURL: os.Getenv("FIDDLER_BASE_URL"),
			Token:   os.Getenv("FIDDLER_TOKEN"),
			ModelID: os.Getenv("FIDDLER_MODEL_ID"),
		},

		SuggestionsCacheTTL: getEnvDuration("SUGGESTIONS_CACHE_TTL", 30*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
