package common

import "time"

// FacetName identifies one sub-analysis of a chapter. Each facet is
// requested from the model independently and validated on its own.
type FacetName string

const (
	FacetSummary          FacetName = "summary"
	FacetSentiment        FacetName = "sentiment"
	FacetThemes           FacetName = "themes"
	FacetLiteraryElements FacetName = "literary_elements"
	FacetCharacterMapping FacetName = "character_mapping"
	FacetReadingAnalytics FacetName = "reading_analytics"
)

// AllFacets returns every facet in a stable order.
func AllFacets() []FacetName {
	return []FacetName{
		FacetSummary,
		FacetSentiment,
		FacetThemes,
		FacetLiteraryElements,
		FacetCharacterMapping,
		FacetReadingAnalytics,
	}
}

// FacetStatus records the outcome of computing one facet. A facet that
// was never computed is "unavailable", which is distinct from a facet
// that was computed and came back empty.
type FacetStatus string

const (
	FacetStatusOK          FacetStatus = "ok"
	FacetStatusUnavailable FacetStatus = "unavailable"
	FacetStatusFailed      FacetStatus = "failed"
)

// IssueSeverity classifies a validation issue. Warnings are recoverable
// (a default was substituted); errors mean a value could not be coerced
// into the declared type or range.
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "warning"
	SeverityError   IssueSeverity = "error"
)

// ValidationIssue is a non-fatal defect found while normalizing raw
// model output into the analysis schema.
type ValidationIssue struct {
	Facet    FacetName     `json:"facet"`
	Field    string        `json:"field"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// Novel is the ingestion root. The raw text lives in object storage
// under SourceKey; chapters are derived from it at ingestion time.
type Novel struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	SourceKey string    `json:"source_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chapter belongs to exactly one novel. Ordinal is unique and
// contiguous within a novel, starting at 1.
type Chapter struct {
	ID                 string    `json:"id"`
	NovelID            string    `json:"novel_id"`
	Ordinal            int       `json:"ordinal"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	WordCount          int       `json:"word_count"`
	ReadingTimeMinutes int       `json:"reading_time_minutes"`
	CreatedAt          time.Time `json:"created_at"`
}

// Summary is the summary facet payload.
type Summary struct {
	Concise   string   `json:"concise" jsonschema_description:"Two to three sentence summary of the chapter"`
	Detailed  string   `json:"detailed" jsonschema_description:"One paragraph summary covering all major developments"`
	KeyEvents []string `json:"key_events" jsonschema_description:"Three to five main plot points in order of occurrence"`
}

// EmotionalBeat is one point on a chapter's emotional arc.
type EmotionalBeat struct {
	Segment   string  `json:"segment" jsonschema_description:"Which part of the chapter this beat covers (opening, middle, climax, ending)"`
	Emotion   string  `json:"emotion" jsonschema_description:"Dominant emotion of the segment"`
	Intensity float64 `json:"intensity" jsonschema_description:"Intensity of the emotion between 0 and 1"`
}

// Sentiment is the sentiment facet payload.
type Sentiment struct {
	OverallTone         string            `json:"overall_tone" jsonschema_description:"Dominant tone of the chapter as a single short label"`
	EmotionalArc        []EmotionalBeat   `json:"emotional_arc" jsonschema_description:"Emotional beats across the chapter in reading order"`
	CharacterSentiments map[string]string `json:"character_sentiments" jsonschema_description:"Emotional state per character at the end of the chapter"`
}

// Theme is one entry of the themes facet.
type Theme struct {
	Theme     string  `json:"theme" jsonschema_description:"Name of the theme"`
	Relevance float64 `json:"relevance" jsonschema_description:"Relevance of the theme to this chapter between 0 and 1"`
	Evidence  string  `json:"evidence" jsonschema_description:"Short textual evidence supporting the theme"`
}

// LiteraryElements is the literary-elements facet payload.
type LiteraryElements struct {
	NarrativeVoice string   `json:"narrative_voice" jsonschema_description:"Narrative perspective (first person, third person limited, omniscient, ...)"`
	Foreshadowing  []string `json:"foreshadowing" jsonschema_description:"Passages that foreshadow later events"`
	Symbolism      []string `json:"symbolism" jsonschema_description:"Symbols used in the chapter and what they stand for"`
}

// MappedCharacter is one character extracted from a chapter.
type MappedCharacter struct {
	Name              string   `json:"name" jsonschema_description:"Name of the character as used in this chapter"`
	Aliases           []string `json:"aliases" jsonschema_description:"Other names or titles this character is referred to by"`
	Role              string   `json:"role" jsonschema_description:"Narrative role (protagonist, antagonist, supporting, minor)"`
	Traits            []string `json:"traits" jsonschema_description:"Character traits shown in this chapter"`
	DevelopmentStatus string   `json:"development_status" jsonschema_description:"How the character develops in this chapter"`
}

// MappedRelationship is one relationship observed between two
// characters within a chapter. Pairs are undirected.
type MappedRelationship struct {
	CharacterA string  `json:"character_a" jsonschema_description:"First character of the pair"`
	CharacterB string  `json:"character_b" jsonschema_description:"Second character of the pair"`
	Type       string  `json:"type" jsonschema_description:"Relationship type (allies, rivals, family, mentor, romantic, ...)"`
	Sentiment  float64 `json:"sentiment" jsonschema_description:"Sentiment of the relationship in this chapter between -1 and 1"`
	Evidence   string  `json:"evidence" jsonschema_description:"Short textual evidence for the relationship"`
}

// CharacterMapping is the character-mapping facet payload. It feeds the
// novel-wide character graph.
type CharacterMapping struct {
	Characters    []MappedCharacter    `json:"characters" jsonschema_description:"Characters appearing in this chapter"`
	Relationships []MappedRelationship `json:"relationships" jsonschema_description:"Relationships observed between characters in this chapter"`
}

// ReadingAnalytics is the reading-analytics facet payload. All scores
// are normalized to [0,1].
type ReadingAnalytics struct {
	Complexity float64 `json:"complexity" jsonschema_description:"Reading complexity between 0 and 1"`
	Pacing     float64 `json:"pacing" jsonschema_description:"Narrative pacing between 0 (slow) and 1 (fast)"`
	Engagement float64 `json:"engagement" jsonschema_description:"Estimated reader engagement between 0 and 1"`
}

// ChapterAnalysis is the durable per-chapter analysis aggregate. A nil
// facet pointer together with FacetStatus "unavailable" or "failed"
// means the facet was not computed; downstream consumers must check
// FacetStatus instead of testing for empty payloads.
type ChapterAnalysis struct {
	ChapterID      string `json:"chapter_id"`
	NovelID        string `json:"novel_id"`
	ChapterOrdinal int    `json:"chapter_ordinal"`

	// AnalysisVersion increases by one on every re-analysis.
	AnalysisVersion int `json:"analysis_version"`

	// RosterSize is the size of the known-character roster at the time
	// this analysis ran. Used to decide staleness on incremental runs.
	RosterSize int `json:"roster_size"`

	Summary          *Summary          `json:"summary,omitempty"`
	Sentiment        *Sentiment        `json:"sentiment,omitempty"`
	Themes           []Theme           `json:"themes,omitempty"`
	LiteraryElements *LiteraryElements `json:"literary_elements,omitempty"`
	CharacterMapping *CharacterMapping `json:"character_mapping,omitempty"`
	ReadingAnalytics *ReadingAnalytics `json:"reading_analytics,omitempty"`

	FacetStatus map[FacetName]FacetStatus `json:"facet_status"`
	Issues      []ValidationIssue         `json:"issues,omitempty"`

	// ProcessingFailed is set when no facet succeeded. Such chapters
	// are eligible for retry on a later run.
	ProcessingFailed bool      `json:"processing_failed"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// RosterEntry is one known character in a novel's cumulative roster.
type RosterEntry struct {
	CanonicalID       string   `json:"canonical_id"`
	Name              string   `json:"name"`
	Aliases           []string `json:"aliases"`
	LastActiveChapter int      `json:"last_active_chapter"`
}

// ChapterDigest is the condensed record of an already-analyzed chapter
// used to build prompt context for later chapters.
type ChapterDigest struct {
	Ordinal int    `json:"ordinal"`
	Concise string `json:"concise"`
}

// NovelContext is the cumulative novel-level state handed to the prompt
// builder: the known-character roster and a rolling digest of prior
// chapters.
type NovelContext struct {
	NovelID         string          `json:"novel_id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	KnownCharacters []RosterEntry   `json:"known_characters"`
	ChapterDigests  []ChapterDigest `json:"chapter_digests"`
}

// DevelopmentPoint is one step of a character's development trajectory,
// keyed by chapter ordinal.
type DevelopmentPoint struct {
	Chapter int    `json:"chapter"`
	Status  string `json:"status"`
}

// CharacterMention is the per-chapter evidence backing a graph node.
// Everything else on the node is derived from its mentions, which makes
// retracting a chapter's contribution a pure recompute.
type CharacterMention struct {
	Chapter     int      `json:"chapter"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Development string   `json:"development,omitempty"`
}

// CharacterNode is the canonical identity of one character within a
// novel.
type CharacterNode struct {
	ID              string             `json:"id"`
	CanonicalName   string             `json:"canonical_name"`
	Aliases         []string           `json:"aliases"`
	FirstAppearance int                `json:"first_appearance"`
	Traits          []string           `json:"traits,omitempty"`
	Development     []DevelopmentPoint `json:"development,omitempty"`
	Mentions        []CharacterMention `json:"mentions"`
}

// EdgeEvidence is the per-chapter evidence backing a relationship edge.
type EdgeEvidence struct {
	Chapter      int     `json:"chapter"`
	Type         string  `json:"type"`
	Sentiment    float64 `json:"sentiment"`
	Interactions int     `json:"interactions"`
}

// RelationshipEdge is an undirected edge between two character nodes.
// Derived fields (Type, Interactions, Sentiment, Chapters) are
// recomputed from Evidence whenever a chapter is applied or retracted.
type RelationshipEdge struct {
	A string `json:"a"`
	B string `json:"b"`

	Type         string         `json:"type"`
	Interactions int            `json:"interactions"`
	Sentiment    float64        `json:"sentiment"`
	Chapters     []int          `json:"chapters"`
	Evidence     []EdgeEvidence `json:"evidence"`
}

// CharacterGraph is the novel-wide, identity-resolved character graph.
// It is a materialized view over the character_mapping facets of all
// analyzed chapters and can be rebuilt from them at any time.
type CharacterGraph struct {
	NovelID string             `json:"novel_id"`
	Nodes   []CharacterNode    `json:"nodes"`
	Edges   []RelationshipEdge `json:"edges"`
}

// GraphDelta describes the outcome of folding one chapter's mapping
// into the graph. Graph is the resulting snapshot; the counters exist
// for logging and API responses.
type GraphDelta struct {
	NovelID        string `json:"novel_id"`
	ChapterOrdinal int    `json:"chapter_ordinal"`

	NodesAdded   int `json:"nodes_added"`
	NodesUpdated int `json:"nodes_updated"`
	NodesRemoved int `json:"nodes_removed"`
	EdgesAdded   int `json:"edges_added"`
	EdgesUpdated int `json:"edges_updated"`
	EdgesRemoved int `json:"edges_removed"`

	Graph *CharacterGraph `json:"graph"`
}
