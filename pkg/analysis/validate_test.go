package analysis

import (
	"reflect"
	"testing"

	"github.com/chogerlate/NovelVizAI/pkg/common"
)

func countSeverity(issues []common.ValidationIssue, severity common.IssueSeverity) int {
	n := 0
	for _, issue := range issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

func TestValidateThemesMissingDefaultsWithWarning(t *testing.T) {
	result, issues := ValidateFacet(common.FacetThemes, map[string]any{})
	if result.Themes == nil || len(result.Themes) != 0 {
		t.Errorf("expected empty theme list, got %v", result.Themes)
	}
	if countSeverity(issues, common.SeverityWarning) != 1 {
		t.Errorf("expected one warning, got %v", issues)
	}
	if countSeverity(issues, common.SeverityError) != 0 {
		t.Errorf("expected no errors, got %v", issues)
	}
}

func TestValidateRelevanceClamped(t *testing.T) {
	raw := map[string]any{
		"themes": []any{
			map[string]any{"theme": "power", "relevance": 1.7, "evidence": "the coronation scene"},
		},
	}
	result, issues := ValidateFacet(common.FacetThemes, raw)
	if len(result.Themes) != 1 {
		t.Fatalf("expected one theme, got %v", result.Themes)
	}
	if result.Themes[0].Relevance != 1.0 {
		t.Errorf("relevance = %v, want clamped 1.0", result.Themes[0].Relevance)
	}
	if countSeverity(issues, common.SeverityError) != 1 {
		t.Errorf("expected one error-severity issue, got %v", issues)
	}
}

func TestValidateRelevanceStringCoerced(t *testing.T) {
	raw := map[string]any{
		"themes": []any{
			map[string]any{"theme": "loss", "relevance": "0.4", "evidence": "the funeral"},
		},
	}
	result, issues := ValidateFacet(common.FacetThemes, raw)
	if result.Themes[0].Relevance != 0.4 {
		t.Errorf("relevance = %v, want parsed 0.4", result.Themes[0].Relevance)
	}
	if len(issues) != 0 {
		t.Errorf("successful coercion should not record issues, got %v", issues)
	}
}

func TestValidateSummaryDefaults(t *testing.T) {
	result, issues := ValidateFacet(common.FacetSummary, nil)
	if result.Summary == nil {
		t.Fatal("expected a summary payload")
	}
	want := &common.Summary{Concise: "", Detailed: "", KeyEvents: []string{}}
	if !reflect.DeepEqual(result.Summary, want) {
		t.Errorf("summary = %+v, want defaults", result.Summary)
	}
	if countSeverity(issues, common.SeverityWarning) != 3 {
		t.Errorf("expected three warnings, got %v", issues)
	}
}

func TestValidateUnknownFieldsDropped(t *testing.T) {
	raw := map[string]any{
		"concise":      "Short.",
		"detailed":     "Long.",
		"key_events":   []any{"a", "b"},
		"totally_new":  "ignored",
		"model_notes":  42,
		"another_blob": map[string]any{"x": 1},
	}
	result, issues := ValidateFacet(common.FacetSummary, raw)
	if len(issues) != 0 {
		t.Errorf("unknown fields must be dropped silently, got %v", issues)
	}
	if result.Summary.Concise != "Short." {
		t.Errorf("concise = %q", result.Summary.Concise)
	}
}

func TestValidateCharacterWithoutNameDropped(t *testing.T) {
	raw := map[string]any{
		"characters": []any{
			map[string]any{"name": "", "role": "minor"},
			map[string]any{"name": "Alice", "aliases": []any{}, "role": "protagonist", "traits": []any{"curious"}, "development_status": "introduced"},
		},
		"relationships": []any{
			map[string]any{"character_a": "Alice", "character_b": "", "type": "allies", "sentiment": 0.2, "evidence": "x"},
		},
	}
	result, issues := ValidateFacet(common.FacetCharacterMapping, raw)
	if len(result.CharacterMapping.Characters) != 1 {
		t.Errorf("expected nameless character dropped, got %v", result.CharacterMapping.Characters)
	}
	if len(result.CharacterMapping.Relationships) != 0 {
		t.Errorf("expected endpoint-less relationship dropped, got %v", result.CharacterMapping.Relationships)
	}
	if countSeverity(issues, common.SeverityError) < 2 {
		t.Errorf("expected error issues for dropped items, got %v", issues)
	}
}

func TestValidateRelationshipSentimentClampedLow(t *testing.T) {
	raw := map[string]any{
		"characters": []any{},
		"relationships": []any{
			map[string]any{"character_a": "Alice", "character_b": "Bob", "type": "enemies", "sentiment": -3.0, "evidence": "the duel"},
		},
	}
	result, _ := ValidateFacet(common.FacetCharacterMapping, raw)
	if result.CharacterMapping.Relationships[0].Sentiment != -1.0 {
		t.Errorf("sentiment = %v, want clamped -1.0", result.CharacterMapping.Relationships[0].Sentiment)
	}
}

func TestValidateReadingAnalyticsWrongType(t *testing.T) {
	raw := map[string]any{
		"complexity": true,
		"pacing":     0.6,
		"engagement": "0.9",
	}
	result, issues := ValidateFacet(common.FacetReadingAnalytics, raw)
	if result.ReadingAnalytics.Complexity != 0 {
		t.Errorf("complexity = %v, want defaulted 0", result.ReadingAnalytics.Complexity)
	}
	if result.ReadingAnalytics.Pacing != 0.6 {
		t.Errorf("pacing = %v", result.ReadingAnalytics.Pacing)
	}
	if result.ReadingAnalytics.Engagement != 0.9 {
		t.Errorf("engagement = %v, want parsed 0.9", result.ReadingAnalytics.Engagement)
	}
	if countSeverity(issues, common.SeverityError) != 1 {
		t.Errorf("expected one error issue, got %v", issues)
	}
}

func TestValidateSentimentArc(t *testing.T) {
	raw := map[string]any{
		"overall_tone": "tense",
		"emotional_arc": []any{
			map[string]any{"segment": "opening", "emotion": "dread", "intensity": 0.7},
			map[string]any{"segment": "", "emotion": "", "intensity": 0.2},
		},
		"character_sentiments": map[string]any{"Alice": "afraid", "Bob": 3.0},
	}
	result, issues := ValidateFacet(common.FacetSentiment, raw)
	if len(result.Sentiment.EmotionalArc) != 1 {
		t.Errorf("expected empty beat dropped, got %v", result.Sentiment.EmotionalArc)
	}
	if result.Sentiment.CharacterSentiments["Bob"] != "3" {
		t.Errorf("expected numeric sentiment stringified, got %q", result.Sentiment.CharacterSentiments["Bob"])
	}
	if countSeverity(issues, common.SeverityError) != 1 {
		t.Errorf("expected one error for the dropped beat, got %v", issues)
	}
}
