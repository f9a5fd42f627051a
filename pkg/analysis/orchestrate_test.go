package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/chogerlate/NovelVizAI/pkg/ai"
	"github.com/chogerlate/NovelVizAI/pkg/common"
)

type fakeStore struct {
	mu       sync.Mutex
	analyses map[string][]byte
	saves    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{analyses: map[string][]byte{}}
}

func (s *fakeStore) GetChapterAnalysis(ctx context.Context, chapterID string) (*common.ChapterAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.analyses[chapterID]
	if !ok {
		return nil, nil
	}
	var a common.ChapterAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *fakeStore) SaveChapterAnalysis(ctx context.Context, analysis *common.ChapterAnalysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[analysis.ChapterID] = raw
	s.saves++
	return nil
}

// stubClient returns canned facet payloads and can be programmed to
// fail specific facets.
type stubClient struct {
	mu       sync.Mutex
	calls    map[string]int
	failWith map[string][]error
}

func newStubClient() *stubClient {
	return &stubClient{calls: map[string]int{}, failWith: map[string][]error{}}
}

func (c *stubClient) failNext(facet string, errs ...error) {
	c.failWith[facet] = append(c.failWith[facet], errs...)
}

func (c *stubClient) callCount(facet string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[facet]
}

func (c *stubClient) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *stubClient) GenerateStructured(ctx context.Context, name, description, prompt string, schema any, opts ...ai.GenerateOption) (map[string]any, error) {
	c.mu.Lock()
	c.calls[name]++
	var err error
	if queue := c.failWith[name]; len(queue) > 0 {
		err = queue[0]
		c.failWith[name] = queue[1:]
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return cannedResponse(name), nil
}

func (c *stubClient) ResetMetrics() {}

func (c *stubClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func cannedResponse(facet string) map[string]any {
	switch common.FacetName(facet) {
	case common.FacetSummary:
		return map[string]any{
			"concise":    "The train stops.",
			"detailed":   "The train stops and everyone waits for an announcement that never comes.",
			"key_events": []any{"the stop", "the silence"},
		}
	case common.FacetSentiment:
		return map[string]any{
			"overall_tone": "tense",
			"emotional_arc": []any{
				map[string]any{"segment": "opening", "emotion": "dread", "intensity": 0.6},
			},
			"character_sentiments": map[string]any{"Alice": "afraid"},
		}
	case common.FacetThemes:
		return map[string]any{
			"themes": []any{
				map[string]any{"theme": "isolation", "relevance": 0.8, "evidence": "the empty platform"},
			},
		}
	case common.FacetLiteraryElements:
		return map[string]any{
			"narrative_voice": "third person limited",
			"foreshadowing":   []any{},
			"symbolism":       []any{},
		}
	case common.FacetCharacterMapping:
		return map[string]any{
			"characters": []any{
				map[string]any{"name": "Alice", "aliases": []any{}, "role": "protagonist", "traits": []any{"curious"}, "development_status": "introduced"},
			},
			"relationships": []any{},
		}
	case common.FacetReadingAnalytics:
		return map[string]any{"complexity": 0.5, "pacing": 0.6, "engagement": 0.7}
	}
	return map[string]any{}
}

type fakeGraph struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (g *fakeGraph) ApplyChapterMapping(ctx context.Context, novelID string, chapterOrdinal int, mapping *common.CharacterMapping) (*common.GraphDelta, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.calls = append(g.calls, chapterOrdinal)
	return &common.GraphDelta{NovelID: novelID, ChapterOrdinal: chapterOrdinal}, nil
}

func testChapter() common.Chapter {
	return common.Chapter{
		ID:      "chapter-1",
		NovelID: "novel-1",
		Ordinal: 1,
		Title:   "Chapter 1",
		Content: "Alice stared down the empty platform.",
	}
}

func newTestClient(stub *stubClient, store *fakeStore, g *fakeGraph) *Client {
	return NewClient(NewClientParams{
		AI:        stub,
		Store:     store,
		Graph:     g,
		BaseDelay: time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
	})
}

func TestAnalyzeChapterMergesAllFacets(t *testing.T) {
	stub := newStubClient()
	store := newFakeStore()
	g := &fakeGraph{}
	client := newTestClient(stub, store, g)

	analysis, err := client.AnalyzeChapter(context.Background(), testChapter(), common.NovelContext{Title: "T", Author: "A"}, ModeFull)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.AnalysisVersion != 1 {
		t.Errorf("version = %d, want 1", analysis.AnalysisVersion)
	}
	for _, facet := range common.AllFacets() {
		if analysis.FacetStatus[facet] != common.FacetStatusOK {
			t.Errorf("facet %s status = %s, want ok", facet, analysis.FacetStatus[facet])
		}
	}
	if analysis.Summary == nil || analysis.Sentiment == nil || analysis.Themes == nil ||
		analysis.LiteraryElements == nil || analysis.CharacterMapping == nil || analysis.ReadingAnalytics == nil {
		t.Error("expected every facet payload populated")
	}
	if analysis.ProcessingFailed {
		t.Error("chapter should be processed")
	}
	if len(g.calls) != 1 || g.calls[0] != 1 {
		t.Errorf("graph calls = %v, want one call for chapter 1", g.calls)
	}
	if stub.totalCalls() != len(common.AllFacets()) {
		t.Errorf("expected one model call per facet, got %d", stub.totalCalls())
	}
}

func TestFullReanalysisIdempotentExceptVersion(t *testing.T) {
	stub := newStubClient()
	store := newFakeStore()
	client := newTestClient(stub, store, &fakeGraph{})
	novelCtx := common.NovelContext{Title: "T", Author: "A"}

	first, err := client.AnalyzeChapter(context.Background(), testChapter(), novelCtx, ModeFull)
	if err != nil {
		t.Fatal(err)
	}
	second, err := client.AnalyzeChapter(context.Background(), testChapter(), novelCtx, ModeFull)
	if err != nil {
		t.Fatal(err)
	}

	if second.AnalysisVersion != first.AnalysisVersion+1 {
		t.Errorf("version = %d, want %d", second.AnalysisVersion, first.AnalysisVersion+1)
	}

	a, b := *first, *second
	a.AnalysisVersion, b.AnalysisVersion = 0, 0
	a.ProcessedAt, b.ProcessedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("re-analysis differs beyond version:\n%+v\nvs\n%+v", a, b)
	}
}

func TestPartialFailureContainment(t *testing.T) {
	stub := newStubClient()
	stub.failNext(string(common.FacetSentiment), &ai.MalformedResponseError{Op: "sentiment", Err: errors.New("not json")})
	store := newFakeStore()
	g := &fakeGraph{}
	client := newTestClient(stub, store, g)

	analysis, err := client.AnalyzeChapter(context.Background(), testChapter(), common.NovelContext{}, ModeFull)
	if err != nil {
		t.Fatalf("facet failure must not abort the chapter: %v", err)
	}

	if analysis.FacetStatus[common.FacetSentiment] != common.FacetStatusFailed {
		t.Errorf("sentiment status = %s, want failed", analysis.FacetStatus[common.FacetSentiment])
	}
	for _, facet := range common.AllFacets() {
		if facet == common.FacetSentiment {
			continue
		}
		if analysis.FacetStatus[facet] != common.FacetStatusOK {
			t.Errorf("facet %s status = %s, want ok", facet, analysis.FacetStatus[facet])
		}
	}
	if analysis.ProcessingFailed {
		t.Error("chapter with one failed facet is still processed")
	}
	if stub.callCount(string(common.FacetSentiment)) != 1 {
		t.Errorf("malformed response must not be retried, got %d calls", stub.callCount(string(common.FacetSentiment)))
	}
	if len(g.calls) != 1 {
		t.Errorf("graph should still be updated, calls = %v", g.calls)
	}
}

func TestTransientFailureRetried(t *testing.T) {
	stub := newStubClient()
	stub.failNext(string(common.FacetSummary),
		&ai.TransientError{Op: "summary", Err: errors.New("timeout")},
		&ai.TransientError{Op: "summary", Err: errors.New("rate limited")},
	)
	client := newTestClient(stub, newFakeStore(), &fakeGraph{})

	analysis, err := client.AnalyzeChapter(context.Background(), testChapter(), common.NovelContext{}, ModeFull)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.FacetStatus[common.FacetSummary] != common.FacetStatusOK {
		t.Errorf("summary status = %s, want ok after retries", analysis.FacetStatus[common.FacetSummary])
	}
	if stub.callCount(string(common.FacetSummary)) != 3 {
		t.Errorf("expected 3 attempts, got %d", stub.callCount(string(common.FacetSummary)))
	}
}

func TestTransientExhaustionFailsFacet(t *testing.T) {
	stub := newStubClient()
	stub.failNext(string(common.FacetSummary),
		&ai.TransientError{Op: "summary", Err: errors.New("timeout")},
		&ai.TransientError{Op: "summary", Err: errors.New("timeout")},
		&ai.TransientError{Op: "summary", Err: errors.New("timeout")},
	)
	client := newTestClient(stub, newFakeStore(), &fakeGraph{})

	analysis, err := client.AnalyzeChapter(context.Background(), testChapter(), common.NovelContext{}, ModeFull)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.FacetStatus[common.FacetSummary] != common.FacetStatusFailed {
		t.Errorf("summary status = %s, want failed after retry exhaustion", analysis.FacetStatus[common.FacetSummary])
	}
}

func TestAllFacetsFailedMarksProcessingFailed(t *testing.T) {
	stub := newStubClient()
	for _, facet := range common.AllFacets() {
		stub.failNext(string(facet), &ai.MalformedResponseError{Op: string(facet), Err: errors.New("bad")})
	}
	g := &fakeGraph{}
	client := newTestClient(stub, newFakeStore(), g)

	analysis, err := client.AnalyzeChapter(context.Background(), testChapter(), common.NovelContext{}, ModeFull)
	if err != nil {
		t.Fatal(err)
	}
	if !analysis.ProcessingFailed {
		t.Error("expected processing_failed when every facet failed")
	}
	if len(g.calls) != 0 {
		t.Errorf("graph must not be updated, calls = %v", g.calls)
	}
}

func TestIncrementalSkipsHealthyFacets(t *testing.T) {
	stub := newStubClient()
	store := newFakeStore()
	client := newTestClient(stub, store, &fakeGraph{})
	novelCtx := common.NovelContext{Title: "T", Author: "A"}

	first, err := client.AnalyzeChapter(context.Background(), testChapter(), novelCtx, ModeFull)
	if err != nil {
		t.Fatal(err)
	}

	second, err := client.AnalyzeChapter(context.Background(), testChapter(), novelCtx, ModeIncremental)
	if err != nil {
		t.Fatal(err)
	}

	if stub.totalCalls() != len(common.AllFacets()) {
		t.Errorf("incremental run recomputed healthy facets, total calls = %d", stub.totalCalls())
	}
	if second.AnalysisVersion != first.AnalysisVersion+1 {
		t.Errorf("version = %d, want bumped", second.AnalysisVersion)
	}
	if !reflect.DeepEqual(second.Summary, first.Summary) {
		t.Error("carried facet payload changed")
	}
	if second.FacetStatus[common.FacetSummary] != common.FacetStatusOK {
		t.Error("carried facet lost its status")
	}
}

func TestIncrementalRecomputesFailedFacet(t *testing.T) {
	stub := newStubClient()
	stub.failNext(string(common.FacetSentiment), &ai.MalformedResponseError{Op: "sentiment", Err: errors.New("bad")})
	store := newFakeStore()
	client := newTestClient(stub, store, &fakeGraph{})
	novelCtx := common.NovelContext{Title: "T", Author: "A"}

	if _, err := client.AnalyzeChapter(context.Background(), testChapter(), novelCtx, ModeFull); err != nil {
		t.Fatal(err)
	}

	analysis, err := client.AnalyzeChapter(context.Background(), testChapter(), novelCtx, ModeIncremental)
	if err != nil {
		t.Fatal(err)
	}

	if analysis.FacetStatus[common.FacetSentiment] != common.FacetStatusOK {
		t.Errorf("sentiment status = %s, want recomputed ok", analysis.FacetStatus[common.FacetSentiment])
	}
	if got := stub.callCount(string(common.FacetSentiment)); got != 2 {
		t.Errorf("sentiment calls = %d, want 2", got)
	}
	if got := stub.callCount(string(common.FacetSummary)); got != 1 {
		t.Errorf("summary calls = %d, want 1 (not recomputed)", got)
	}
}

func TestIncrementalRecomputesWhenRosterGrows(t *testing.T) {
	stub := newStubClient()
	store := newFakeStore()
	client := newTestClient(stub, store, &fakeGraph{})

	if _, err := client.AnalyzeChapter(context.Background(), testChapter(), common.NovelContext{}, ModeFull); err != nil {
		t.Fatal(err)
	}

	grown := common.NovelContext{}
	for i := 0; i < 6; i++ {
		grown.KnownCharacters = append(grown.KnownCharacters, common.RosterEntry{Name: string(rune('A' + i))})
	}

	if _, err := client.AnalyzeChapter(context.Background(), testChapter(), grown, ModeIncremental); err != nil {
		t.Fatal(err)
	}

	if stub.totalCalls() != 2*len(common.AllFacets()) {
		t.Errorf("stale analysis should recompute every facet, total calls = %d", stub.totalCalls())
	}
}
