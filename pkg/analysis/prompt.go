package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/chogerlate/NovelVizAI/internal/util"
	"github.com/chogerlate/NovelVizAI/pkg/ai"
	"github.com/chogerlate/NovelVizAI/pkg/common"
)

const (
	// maxRosterEntries bounds the known-character list in a prompt to the
	// most recently active characters.
	maxRosterEntries = 30

	// recentDigestCount is how many of the latest prior chapters keep
	// their full concise summary; older ones are compressed to their
	// first sentence.
	recentDigestCount = 5

	// chapterTokenBudget caps the chapter text included in a prompt.
	chapterTokenBudget = 12000
)

// PromptSpec is one fully assembled facet request: the system and user
// prompts plus the JSON schema the response must conform to.
type PromptSpec struct {
	Facet       common.FacetName
	Name        string
	Description string
	System      string
	User        string
	Schema      any
}

type themeList struct {
	Themes []common.Theme `json:"themes" jsonschema_description:"Themes present in this chapter"`
}

func facetPrototype(facet common.FacetName) (any, string) {
	switch facet {
	case common.FacetSummary:
		return &common.Summary{}, "Chapter summary at two levels of detail plus key events"
	case common.FacetSentiment:
		return &common.Sentiment{}, "Overall tone, emotional arc, and per-character emotional states"
	case common.FacetThemes:
		return &themeList{}, "Themes present in the chapter with relevance scores and evidence"
	case common.FacetLiteraryElements:
		return &common.LiteraryElements{}, "Narrative voice, foreshadowing, and symbolism"
	case common.FacetCharacterMapping:
		return &common.CharacterMapping{}, "Characters appearing in the chapter and the relationships between them"
	case common.FacetReadingAnalytics:
		return &common.ReadingAnalytics{}, "Reading complexity, pacing, and engagement scores"
	}
	return nil, ""
}

func facetTemplate(facet common.FacetName) string {
	switch facet {
	case common.FacetSummary:
		return summaryPrompt
	case common.FacetSentiment:
		return sentimentPrompt
	case common.FacetThemes:
		return themesPrompt
	case common.FacetLiteraryElements:
		return literaryElementsPrompt
	case common.FacetCharacterMapping:
		return characterMappingPrompt
	case common.FacetReadingAnalytics:
		return readingAnalyticsPrompt
	}
	return ""
}

// BuildPrompt assembles the prompt for one facet of one chapter. It is a
// pure function: identical inputs produce an identical PromptSpec. The
// character roster is capped to the most recently active entries and the
// prior-chapter digest is progressively compressed, so prompt size stays
// bounded no matter how long the novel runs.
func BuildPrompt(facet common.FacetName, chapterText string, novelCtx common.NovelContext) PromptSpec {
	prototype, description := facetPrototype(facet)

	user := fmt.Sprintf(
		facetTemplate(facet),
		novelCtx.Title,
		novelCtx.Author,
		rosterSection(novelCtx.KnownCharacters),
		digestSection(novelCtx.ChapterDigests),
		truncateToTokenBudget(chapterText, chapterTokenBudget),
	)

	return PromptSpec{
		Facet:       facet,
		Name:        string(facet),
		Description: description,
		System:      LiteraryAnalystSystemPrompt,
		User:        user,
		Schema:      ai.GenerateSchema(prototype),
	}
}

func rosterSection(roster []common.RosterEntry) string {
	if len(roster) == 0 {
		return "(none yet)"
	}

	sorted := make([]common.RosterEntry, len(roster))
	copy(sorted, roster)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LastActiveChapter != sorted[j].LastActiveChapter {
			return sorted[i].LastActiveChapter > sorted[j].LastActiveChapter
		}
		return sorted[i].Name < sorted[j].Name
	})
	if len(sorted) > maxRosterEntries {
		sorted = sorted[:maxRosterEntries]
	}

	var b strings.Builder
	for _, entry := range sorted {
		b.WriteString("- ")
		b.WriteString(entry.Name)
		if len(entry.Aliases) > 0 {
			b.WriteString(" (also: ")
			b.WriteString(strings.Join(entry.Aliases, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func digestSection(digests []common.ChapterDigest) string {
	if len(digests) == 0 {
		return "(this is the first analyzed chapter)"
	}

	sorted := make([]common.ChapterDigest, len(digests))
	copy(sorted, digests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ordinal < sorted[j].Ordinal
	})

	cutoff := len(sorted) - recentDigestCount

	var b strings.Builder
	for i, digest := range sorted {
		summary := digest.Concise
		if i < cutoff {
			summary = util.FirstSentence(summary)
		}
		fmt.Fprintf(&b, "Chapter %d: %s\n", digest.Ordinal, summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncateToTokenBudget cuts text at a token boundary when it exceeds the
// budget. Falls back to a character-count cut if the encoding is
// unavailable.
func truncateToTokenBudget(text string, budget int) string {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		if len(text) > budget*4 {
			return text[:budget*4]
		}
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}
