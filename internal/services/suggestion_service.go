package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"wikichat/internal/db"
	"wikichat/internal/models"
	"wikichat/internal/providers"
)

const suggestionsCacheKey = "wikichat:suggested_questions"

// suggestionTemperature is deliberately high so repeated visits see
// varied questions.
const suggestionTemperature float32 = 1.5

const suggestionPromptTemplate = `You are an assistant who creates sample questions to ask a chatbot that answers questions about anything from Wikipedia.
Below is a JSON array of recently updated Wikipedia pages with some of their content. Create a list of 4 short questions that can be answered using only that content.
Only write questions about topics of general interest that do not require additional context, and do not mention the pages themselves.
Return one question per line with no numbering or bullets.

Pages:
%s`

// SuggestionService generates sample questions from the most recently
// ingested Wikipedia pages. Generated questions are cached so a burst of
// page loads does not hammer the completion model.
type SuggestionService struct {
	astra       *db.AstraClient
	collection  string
	completions providers.CompletionProvider
	model       string
	cache       *db.RedisClient
	cacheTTL    time.Duration
	logger      *log.Logger
}

// NewSuggestionService creates the service. cache may be nil, in which
// case every call generates fresh questions.
func NewSuggestionService(astra *db.AstraClient, collection string, completions providers.CompletionProvider, model string, cache *db.RedisClient, cacheTTL time.Duration, logger *log.Logger) *SuggestionService {
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	return &SuggestionService{
		astra:       astra,
		collection:  collection,
		completions: completions,
		model:       model,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// SuggestedQuestions returns newline-separated sample questions, serving
// from cache when a fresh copy exists. The second return value reports a
// cache hit.
func (s *SuggestionService) SuggestedQuestions(ctx context.Context) (string, bool, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, suggestionsCacheKey)
		if err == nil {
			return cached, true, nil
		}
		if !errors.Is(err, db.ErrCacheMiss) {
			s.logger.Printf("[SUGGESTIONS] ⚠️ Cache lookup failed: %v", err)
		}
	}

	prompt := fmt.Sprintf(suggestionPromptTemplate, s.recentPagesJSON(ctx))

	questions, err := s.completions.Complete(ctx, s.model, []models.ChatMessage{
		{Role: models.RoleUser, Content: prompt},
	}, suggestionTemperature)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate suggested questions: %w", err)
	}
	questions = strings.TrimSpace(questions)

	if s.cache != nil {
		if err := s.cache.Set(ctx, suggestionsCacheKey, questions, s.cacheTTL); err != nil {
			s.logger.Printf("[SUGGESTIONS] ⚠️ Cache write failed: %v", err)
		}
	}

	return questions, false, nil
}

// recentPagesJSON loads the recent_articles summary document and renders
// it as the JSON array fed to the suggestion prompt. A store failure
// yields an empty array so the model still produces questions.
func (s *SuggestionService) recentPagesJSON(ctx context.Context) string {
	doc, err := s.astra.FindOne(ctx, s.collection,
		map[string]interface{}{"_id": "recent_articles"},
		map[string]int{
			"recent_articles.metadata.title":           1,
			"recent_articles.metadata.url":             1,
			"recent_articles.suggested_chunks.content": 1,
		})
	if err != nil {
		s.logger.Printf("[SUGGESTIONS] ⚠️ Failed to load recent pages: %v", err)
		return "[]"
	}

	pages := summarizeRecentPages(doc, 4, 3)
	data, err := json.Marshal(pages)
	if err != nil {
		s.logger.Printf("[SUGGESTIONS] ⚠️ Failed to serialize recent pages: %v", err)
		return "[]"
	}
	return string(data)
}

// recentPage is one entry of the prompt's page summary.
type recentPage struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// summarizeRecentPages extracts up to maxPages title/content summaries
// from the recent_articles document, keeping at most maxChunks content
// chunks per page. The document shape is tolerated loosely since it is
// written by a separate ingest job.
func summarizeRecentPages(doc map[string]interface{}, maxPages, maxChunks int) []recentPage {
	pages := []recentPage{}
	if doc == nil {
		return pages
	}

	articles, ok := doc["recent_articles"].([]interface{})
	if !ok {
		return pages
	}

	for _, raw := range articles {
		if len(pages) >= maxPages {
			break
		}
		article, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		page := recentPage{Content: []string{}}
		if meta, ok := article["metadata"].(map[string]interface{}); ok {
			page.Title, _ = meta["title"].(string)
		}

		if chunks, ok := article["suggested_chunks"].([]interface{}); ok {
			for _, rawChunk := range chunks {
				if len(page.Content) >= maxChunks {
					break
				}
				chunk, ok := rawChunk.(map[string]interface{})
				if !ok {
					continue
				}
				if content, ok := chunk["content"].(string); ok {
					page.Content = append(page.Content, content)
				}
			}
		}

		if page.Title != "" {
			pages = append(pages, page)
		}
	}

	return pages
}
