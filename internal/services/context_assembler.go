package services

import (
	"log"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"wikichat/internal/models"
)

// Blank lines inside passage content would collide with the blank-line
// record separator, so they are collapsed before serialization.
var blankLines = regexp.MustCompile(`\n\s*\n`)

// ContextAssembler turns retrieved passages into the serialized context
// block handed to the prompt builder. Each passage becomes a labeled
// Title/URL/Content record; records are separated by a blank line so the
// model can tell source pages apart.
type ContextAssembler struct {
	maxSentences int
	logger       *log.Logger
}

// NewContextAssembler creates an assembler. maxSentences caps how many
// sentences of each passage survive into the context; zero disables
// truncation.
func NewContextAssembler(maxSentences int, logger *log.Logger) *ContextAssembler {
	return &ContextAssembler{
		maxSentences: maxSentences,
		logger:       logger,
	}
}

// Assemble serializes passages into a context block and selects the
// citation. The citation is always the highest-ranked passage; an empty
// passage list yields an empty context and no citation.
func (a *ContextAssembler) Assemble(passages []models.RetrievedPassage) models.ConversationContext {
	if len(passages) == 0 {
		return models.ConversationContext{}
	}

	blocks := make([]string, 0, len(passages))
	for _, p := range passages {
		content := a.truncate(p.Content)

		var b strings.Builder
		b.WriteString("Title: ")
		b.WriteString(p.Title)
		b.WriteString("\nURL: ")
		b.WriteString(p.URL)
		b.WriteString("\nContent: ")
		b.WriteString(content)
		blocks = append(blocks, b.String())
	}

	return models.ConversationContext{
		SerializedContext: strings.Join(blocks, "\n\n"),
		CitationTitle:     passages[0].Title,
		CitationURL:       passages[0].URL,
	}
}

// truncate collapses paragraph breaks and keeps only the first
// maxSentences sentences of a passage, joined with single spaces.
// Malformed text that the segmenter rejects passes through with only the
// paragraph breaks collapsed.
func (a *ContextAssembler) truncate(content string) string {
	content = blankLines.ReplaceAllString(strings.TrimSpace(content), "\n")
	if a.maxSentences <= 0 || content == "" {
		return content
	}

	doc, err := prose.NewDocument(content,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		a.logger.Printf("[CONTEXT] ⚠️ Sentence segmentation failed: %v", err)
		return content
	}

	sentences := doc.Sentences()
	if len(sentences) <= a.maxSentences {
		return content
	}

	parts := make([]string, 0, a.maxSentences)
	for _, s := range sentences[:a.maxSentences] {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}

// ParseContext is the inverse of Assemble for well-formed context blocks.
// It is used to recover per-page records from a serialized context, e.g.
// when forwarding source documents to analytics.
func ParseContext(serialized string) []models.RetrievedPassage {
	serialized = strings.TrimSpace(serialized)
	if serialized == "" {
		return nil
	}

	var passages []models.RetrievedPassage
	for i, block := range strings.Split(serialized, "\n\n") {
		var p models.RetrievedPassage
		p.SimilarityRank = i

		lines := strings.SplitN(block, "\n", 3)
		for _, line := range lines {
			switch {
			case strings.HasPrefix(line, "Title: "):
				p.Title = strings.TrimPrefix(line, "Title: ")
			case strings.HasPrefix(line, "URL: "):
				p.URL = strings.TrimPrefix(line, "URL: ")
			case strings.HasPrefix(line, "Content: "):
				p.Content = strings.TrimPrefix(line, "Content: ")
			}
		}
		passages = append(passages, p)
	}
	return passages
}
