package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"wikichat/internal/models"
	"wikichat/internal/providers"
)

const condensePromptTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question that can be understood without the conversation. Do not answer the question. If the follow up question is already self-contained, return it unchanged.

Chat history:
%s

Follow up question: %s

Standalone question:`

// QuestionCondenser rewrites a follow-up question into a standalone one
// using the prior turns of the conversation. Condensation is an accuracy
// aid, not a hard requirement: when the model call fails the raw question
// is used as-is.
type QuestionCondenser struct {
	completions providers.CompletionProvider
	model       string
	logger      *log.Logger
}

// NewQuestionCondenser creates a condenser backed by the given completion
// provider. The model is typically a cheaper one than the chat model.
func NewQuestionCondenser(completions providers.CompletionProvider, model string, logger *log.Logger) *QuestionCondenser {
	return &QuestionCondenser{
		completions: completions,
		model:       model,
		logger:      logger,
	}
}

// Condense returns the standalone form of the latest question. A first-turn
// question (no prior messages) is returned verbatim without a model call.
func (c *QuestionCondenser) Condense(ctx context.Context, prior []models.ChatMessage, latest string) string {
	if len(prior) == 0 {
		return latest
	}

	prompt := fmt.Sprintf(condensePromptTemplate, FormatTranscript(prior), latest)

	condensed, err := c.completions.Complete(ctx, c.model, []models.ChatMessage{
		{Role: models.RoleUser, Content: prompt},
	}, 0)
	if err != nil {
		c.logger.Printf("[CONDENSER] ⚠️ Condensation failed, using raw question: %v", err)
		return latest
	}

	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return latest
	}

	c.logger.Printf("[CONDENSER] Condensed question: %s", condensed)
	return condensed
}

// FormatTranscript renders chat turns as a plain-text transcript with
// Human/Assistant speaker labels, one turn per line.
func FormatTranscript(messages []models.ChatMessage) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case models.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("Human: ")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}
