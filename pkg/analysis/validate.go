package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chogerlate/NovelVizAI/pkg/common"
)

// FacetResult is the schema-conformant payload of one validated facet.
// Exactly one of the payload fields is populated, matching Facet.
type FacetResult struct {
	Facet common.FacetName

	Summary          *common.Summary
	Sentiment        *common.Sentiment
	Themes           []common.Theme
	LiteraryElements *common.LiteraryElements
	CharacterMapping *common.CharacterMapping
	ReadingAnalytics *common.ReadingAnalytics
}

// ValidateFacet normalizes raw model output into the analysis schema.
// The input is untrusted: fields may be missing, wrongly typed, or out
// of range. Missing fields are defaulted with a warning issue; wrongly
// typed fields are coerced where possible, clamped to their declared
// range with an error issue, or defaulted with an error issue when
// coercion fails. Unknown fields are dropped silently. ValidateFacet
// never fails: it always returns a best-effort result plus the list of
// issues found.
func ValidateFacet(facet common.FacetName, raw map[string]any) (FacetResult, []common.ValidationIssue) {
	if raw == nil {
		raw = map[string]any{}
	}
	v := &facetValidator{facet: facet}
	result := FacetResult{Facet: facet}

	switch facet {
	case common.FacetSummary:
		result.Summary = v.summary(raw)
	case common.FacetSentiment:
		result.Sentiment = v.sentiment(raw)
	case common.FacetThemes:
		result.Themes = v.themes(raw)
	case common.FacetLiteraryElements:
		result.LiteraryElements = v.literaryElements(raw)
	case common.FacetCharacterMapping:
		result.CharacterMapping = v.characterMapping(raw)
	case common.FacetReadingAnalytics:
		result.ReadingAnalytics = v.readingAnalytics(raw)
	}

	return result, v.issues
}

type facetValidator struct {
	facet  common.FacetName
	issues []common.ValidationIssue
}

func (v *facetValidator) warn(field, message string) {
	v.issues = append(v.issues, common.ValidationIssue{
		Facet:    v.facet,
		Field:    field,
		Severity: common.SeverityWarning,
		Message:  message,
	})
}

func (v *facetValidator) fail(field, message string) {
	v.issues = append(v.issues, common.ValidationIssue{
		Facet:    v.facet,
		Field:    field,
		Severity: common.SeverityError,
		Message:  message,
	})
}

// str reads a string field, coercing numbers and booleans to their text
// form. Missing fields default to "" with a warning.
func (v *facetValidator) str(m map[string]any, field string) string {
	value, ok := m[field]
	if !ok || value == nil {
		v.warn(field, "missing, defaulted to empty")
		return ""
	}
	switch t := value.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	v.fail(field, fmt.Sprintf("expected string, got %T", value))
	return ""
}

// num reads a numeric field and clamps it to [lo, hi]. Strings are
// parsed; clamping and parse failures record an error issue.
func (v *facetValidator) num(m map[string]any, field string, lo, hi float64) float64 {
	value, ok := m[field]
	if !ok || value == nil {
		v.warn(field, "missing, defaulted to 0")
		return clampDefault(0, lo, hi)
	}

	var parsed float64
	switch t := value.(type) {
	case float64:
		parsed = t
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			v.fail(field, fmt.Sprintf("cannot parse %q as number", t))
			return clampDefault(0, lo, hi)
		}
		parsed = p
	default:
		v.fail(field, fmt.Sprintf("expected number, got %T", value))
		return clampDefault(0, lo, hi)
	}

	if parsed < lo {
		v.fail(field, fmt.Sprintf("%v below range, clamped to %v", parsed, lo))
		return lo
	}
	if parsed > hi {
		v.fail(field, fmt.Sprintf("%v above range, clamped to %v", parsed, hi))
		return hi
	}
	return parsed
}

func clampDefault(def, lo, hi float64) float64 {
	if def < lo {
		return lo
	}
	if def > hi {
		return hi
	}
	return def
}

// strSlice reads a list of strings. A bare string becomes a single-item
// list; non-string items are dropped with an error issue.
func (v *facetValidator) strSlice(m map[string]any, field string) []string {
	value, ok := m[field]
	if !ok || value == nil {
		v.warn(field, "missing, defaulted to empty list")
		return []string{}
	}
	switch t := value.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				v.fail(field, fmt.Sprintf("item %d: expected string, got %T", i, item))
				continue
			}
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return []string{}
	}
	v.fail(field, fmt.Sprintf("expected list of strings, got %T", value))
	return []string{}
}

// objSlice reads a list of objects; non-object items are dropped with an
// error issue.
func (v *facetValidator) objSlice(m map[string]any, field string) []map[string]any {
	value, ok := m[field]
	if !ok || value == nil {
		v.warn(field, "missing, defaulted to empty list")
		return nil
	}
	list, ok := value.([]any)
	if !ok {
		v.fail(field, fmt.Sprintf("expected list, got %T", value))
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			v.fail(field, fmt.Sprintf("item %d: expected object, got %T", i, item))
			continue
		}
		out = append(out, obj)
	}
	return out
}

// strMap reads a map of string to string; non-string values are
// stringified where possible, otherwise dropped with an error issue.
func (v *facetValidator) strMap(m map[string]any, field string) map[string]string {
	value, ok := m[field]
	if !ok || value == nil {
		v.warn(field, "missing, defaulted to empty map")
		return map[string]string{}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		v.fail(field, fmt.Sprintf("expected object, got %T", value))
		return map[string]string{}
	}
	out := make(map[string]string, len(obj))
	for key, item := range obj {
		switch t := item.(type) {
		case string:
			out[key] = strings.TrimSpace(t)
		case float64:
			out[key] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			v.fail(field, fmt.Sprintf("key %q: expected string, got %T", key, item))
		}
	}
	return out
}

func (v *facetValidator) summary(raw map[string]any) *common.Summary {
	return &common.Summary{
		Concise:   v.str(raw, "concise"),
		Detailed:  v.str(raw, "detailed"),
		KeyEvents: v.strSlice(raw, "key_events"),
	}
}

func (v *facetValidator) sentiment(raw map[string]any) *common.Sentiment {
	arc := []common.EmotionalBeat{}
	for _, obj := range v.objSlice(raw, "emotional_arc") {
		beat := common.EmotionalBeat{
			Segment:   v.str(obj, "segment"),
			Emotion:   v.str(obj, "emotion"),
			Intensity: v.num(obj, "intensity", 0, 1),
		}
		if beat.Segment == "" && beat.Emotion == "" {
			v.fail("emotional_arc", "beat without segment or emotion dropped")
			continue
		}
		arc = append(arc, beat)
	}
	return &common.Sentiment{
		OverallTone:         v.str(raw, "overall_tone"),
		EmotionalArc:        arc,
		CharacterSentiments: v.strMap(raw, "character_sentiments"),
	}
}

func (v *facetValidator) themes(raw map[string]any) []common.Theme {
	themes := []common.Theme{}
	for _, obj := range v.objSlice(raw, "themes") {
		theme := common.Theme{
			Theme:     v.str(obj, "theme"),
			Relevance: v.num(obj, "relevance", 0, 1),
			Evidence:  v.str(obj, "evidence"),
		}
		if theme.Theme == "" {
			v.fail("themes", "theme without name dropped")
			continue
		}
		themes = append(themes, theme)
	}
	return themes
}

func (v *facetValidator) literaryElements(raw map[string]any) *common.LiteraryElements {
	return &common.LiteraryElements{
		NarrativeVoice: v.str(raw, "narrative_voice"),
		Foreshadowing:  v.strSlice(raw, "foreshadowing"),
		Symbolism:      v.strSlice(raw, "symbolism"),
	}
}

func (v *facetValidator) characterMapping(raw map[string]any) *common.CharacterMapping {
	characters := []common.MappedCharacter{}
	for _, obj := range v.objSlice(raw, "characters") {
		character := common.MappedCharacter{
			Name:              v.str(obj, "name"),
			Aliases:           v.strSlice(obj, "aliases"),
			Role:              v.str(obj, "role"),
			Traits:            v.strSlice(obj, "traits"),
			DevelopmentStatus: v.str(obj, "development_status"),
		}
		if character.Name == "" {
			v.fail("characters", "character without name dropped")
			continue
		}
		characters = append(characters, character)
	}

	relationships := []common.MappedRelationship{}
	for _, obj := range v.objSlice(raw, "relationships") {
		rel := common.MappedRelationship{
			CharacterA: v.str(obj, "character_a"),
			CharacterB: v.str(obj, "character_b"),
			Type:       v.str(obj, "type"),
			Sentiment:  v.num(obj, "sentiment", -1, 1),
			Evidence:   v.str(obj, "evidence"),
		}
		if rel.CharacterA == "" || rel.CharacterB == "" {
			v.fail("relationships", "relationship missing an endpoint dropped")
			continue
		}
		relationships = append(relationships, rel)
	}

	return &common.CharacterMapping{
		Characters:    characters,
		Relationships: relationships,
	}
}

func (v *facetValidator) readingAnalytics(raw map[string]any) *common.ReadingAnalytics {
	return &common.ReadingAnalytics{
		Complexity: v.num(raw, "complexity", 0, 1),
		Pacing:     v.num(raw, "pacing", 0, 1),
		Engagement: v.num(raw, "engagement", 0, 1),
	}
}
