package services

import (
	"fmt"
	"strings"

	"wikichat/internal/models"
)

// PromptBuilder renders the final chat prompt from the assembled context,
// the conversation transcript and the standalone question. The rendered
// prompt is sent as a single user message, matching how a prompt template
// feeds a chat model.
type PromptBuilder struct {
	refusalMessage string
}

// NewPromptBuilder creates a builder. refusalMessage, when non-empty, is
// the exact reply the model must give for questions with no relevant
// source page.
func NewPromptBuilder(refusalMessage string) *PromptBuilder {
	return &PromptBuilder{refusalMessage: refusalMessage}
}

// Build renders the prompt messages for a chat turn. The transcript is the
// prior conversation formatted by FormatTranscript; it may be empty.
func (p *PromptBuilder) Build(cc models.ConversationContext, transcript string) []models.ChatMessage {
	var b strings.Builder

	b.WriteString("You are an AI assistant answering questions about anything from Wikipedia. ")
	b.WriteString("The context below contains the most relevant page data found for the question, along with each source page's title and URL. ")
	b.WriteString("Refer to the context only as \"Wikipedia\". ")
	b.WriteString("Format responses using markdown where applicable and do not return images.\n")

	if cc.CitationURL != "" {
		fmt.Fprintf(&b, "At the end of the response, on a line by itself, add the markdown link [%s](%s) and nothing else on that line. Do not add any other links.\n",
			cc.CitationTitle, cc.CitationURL)
	} else {
		b.WriteString("The context is empty, so answer the question to the best of your ability from general knowledge. Do not add any links.\n")
	}

	if p.refusalMessage != "" {
		fmt.Fprintf(&b, "If the question cannot be answered from Wikipedia at all, reply exactly: %q\n", p.refusalMessage)
	}

	b.WriteString("\n<context>\n")
	b.WriteString(cc.SerializedContext)
	b.WriteString("\n</context>\n")

	b.WriteString("\n<chat_history>\n")
	b.WriteString(transcript)
	b.WriteString("\n</chat_history>\n")

	b.WriteString("\nQUESTION: ")
	b.WriteString(cc.StandaloneQuestion)

	return []models.ChatMessage{
		{Role: models.RoleUser, Content: b.String()},
	}
}
