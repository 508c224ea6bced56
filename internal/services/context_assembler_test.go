package services

import (
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikichat/internal/models"
)

func testAssembler(maxSentences int) *ContextAssembler {
	logger := log.New(os.Stdout, "[TEST] ", log.LstdFlags)
	return NewContextAssembler(maxSentences, logger)
}

func testPassages() []models.RetrievedPassage {
	return []models.RetrievedPassage{
		{
			Title:          "Eiffel Tower",
			URL:            "https://en.wikipedia.org/wiki/Eiffel_Tower",
			Content:        "The Eiffel Tower is a wrought-iron lattice tower in Paris. It was completed in 1889.",
			SimilarityRank: 0,
		},
		{
			Title:          "Gustave Eiffel",
			URL:            "https://en.wikipedia.org/wiki/Gustave_Eiffel",
			Content:        "Gustave Eiffel was a French civil engineer.",
			SimilarityRank: 1,
		},
	}
}

func TestAssembleEmptyPassages(t *testing.T) {
	assembler := testAssembler(0)

	cc := assembler.Assemble(nil)

	assert.Empty(t, cc.SerializedContext)
	assert.Empty(t, cc.CitationURL)
	assert.Empty(t, cc.CitationTitle)
}

func TestAssembleFormatsLabeledBlocks(t *testing.T) {
	assembler := testAssembler(0)

	cc := assembler.Assemble(testPassages())

	blocks := strings.Split(cc.SerializedContext, "\n\n")
	assert.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "Title: Eiffel Tower\n"))
	assert.Contains(t, blocks[0], "URL: https://en.wikipedia.org/wiki/Eiffel_Tower")
	assert.Contains(t, blocks[0], "Content: The Eiffel Tower is a wrought-iron lattice tower")
	assert.True(t, strings.HasPrefix(blocks[1], "Title: Gustave Eiffel\n"))
}

func TestAssembleCitationIsNearestPassage(t *testing.T) {
	assembler := testAssembler(0)

	cc := assembler.Assemble(testPassages())

	assert.Equal(t, "Eiffel Tower", cc.CitationTitle)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Eiffel_Tower", cc.CitationURL)
}

func TestAssembleTruncatesLongPassages(t *testing.T) {
	assembler := testAssembler(2)

	passages := []models.RetrievedPassage{
		{
			Title:   "Moon",
			URL:     "https://en.wikipedia.org/wiki/Moon",
			Content: "The Moon is Earth's only natural satellite. It orbits at an average distance of 384400 km. The Moon always presents the same side to Earth. Its gravitational influence produces tides.",
		},
	}

	cc := assembler.Assemble(passages)

	assert.Contains(t, cc.SerializedContext, "only natural satellite.")
	assert.Contains(t, cc.SerializedContext, "384400 km.")
	assert.NotContains(t, cc.SerializedContext, "the same side")
	assert.NotContains(t, cc.SerializedContext, "tides")
}

func TestAssembleKeepsShortPassagesIntact(t *testing.T) {
	assembler := testAssembler(12)

	passages := testPassages()
	cc := assembler.Assemble(passages)

	assert.Contains(t, cc.SerializedContext, passages[0].Content)
	assert.Contains(t, cc.SerializedContext, passages[1].Content)
}

func TestParseContextRoundTrip(t *testing.T) {
	assembler := testAssembler(0)
	passages := testPassages()

	cc := assembler.Assemble(passages)
	parsed := ParseContext(cc.SerializedContext)

	assert.Len(t, parsed, len(passages))
	for i, p := range parsed {
		assert.Equal(t, passages[i].Title, p.Title)
		assert.Equal(t, passages[i].URL, p.URL)
		assert.Equal(t, passages[i].Content, p.Content)
		assert.Equal(t, i, p.SimilarityRank)
	}
}

func TestParseContextRoundTripWithMultiParagraphContent(t *testing.T) {
	assembler := testAssembler(0)

	passages := []models.RetrievedPassage{
		{
			Title:   "Eiffel Tower",
			URL:     "https://en.wikipedia.org/wiki/Eiffel_Tower",
			Content: "The tower is 330 metres tall.\n\nIt was completed in 1889.\n\n\nIt is named after Gustave Eiffel.",
		},
		{
			Title:   "Moon",
			URL:     "https://en.wikipedia.org/wiki/Moon",
			Content: "The Moon is Earth's only natural satellite.",
		},
	}

	cc := assembler.Assemble(passages)
	parsed := ParseContext(cc.SerializedContext)

	// Paragraph breaks must not split a passage into extra records
	require.Len(t, parsed, 2)
	assert.Equal(t, "Eiffel Tower", parsed[0].Title)
	assert.Contains(t, parsed[0].Content, "330 metres tall.")
	assert.Contains(t, parsed[0].Content, "completed in 1889.")
	assert.Contains(t, parsed[0].Content, "Gustave Eiffel.")
	assert.NotContains(t, parsed[0].Content, "\n\n")
	assert.Equal(t, "Moon", parsed[1].Title)
	assert.Equal(t, "The Moon is Earth's only natural satellite.", parsed[1].Content)
}

func TestParseContextEmpty(t *testing.T) {
	assert.Nil(t, ParseContext(""))
	assert.Nil(t, ParseContext("   \n  "))
}
