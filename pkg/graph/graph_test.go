package graph

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chogerlate/NovelVizAI/pkg/common"
)

type memGraphStore struct {
	mu     sync.Mutex
	graphs map[string][]byte
}

func newMemGraphStore() *memGraphStore {
	return &memGraphStore{graphs: map[string][]byte{}}
}

func (s *memGraphStore) GetCharacterGraph(ctx context.Context, novelID string) (*common.CharacterGraph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.graphs[novelID]
	if !ok {
		return nil, nil
	}
	var g common.CharacterGraph
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *memGraphStore) SaveCharacterGraph(ctx context.Context, g *common.CharacterGraph) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.NovelID] = raw
	return nil
}

func mappingWith(characters []common.MappedCharacter, relationships []common.MappedRelationship) *common.CharacterMapping {
	return &common.CharacterMapping{Characters: characters, Relationships: relationships}
}

// fingerprint makes graphs comparable across runs by replacing random
// node ids with canonical names.
func fingerprint(g *common.CharacterGraph) map[string]any {
	idToName := map[string]string{}
	nodes := map[string]any{}
	for _, n := range g.Nodes {
		idToName[n.ID] = n.CanonicalName
		nodes[n.CanonicalName] = map[string]any{
			"aliases": n.Aliases,
			"first":   n.FirstAppearance,
			"traits":  n.Traits,
		}
	}
	edges := map[string]any{}
	for _, e := range g.Edges {
		a, b := idToName[e.A], idToName[e.B]
		if a > b {
			a, b = b, a
		}
		edges[a+"|"+b] = map[string]any{
			"type":         e.Type,
			"interactions": e.Interactions,
			"sentiment":    e.Sentiment,
			"chapters":     e.Chapters,
		}
	}
	return map[string]any{"nodes": nodes, "edges": edges}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Kim Dokja", "dokja kim"},
		{"token order", "dokja kim", "dokja kim"},
		{"punctuation", "Dr. Armstrong!", "armstrong dr"},
		{"diacritics", "José María", "jose maria"},
		{"whitespace", "  Yoo   Joonghyuk  ", "joonghyuk yoo"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAliasMergeAcrossChapters(t *testing.T) {
	builder := NewBuilder(newMemGraphStore())
	ctx := context.Background()

	_, err := builder.ApplyChapterMapping(ctx, "novel-1", 1, mappingWith(
		[]common.MappedCharacter{{Name: "Kim Dokja", Role: "protagonist"}}, nil))
	if err != nil {
		t.Fatalf("apply chapter 1: %v", err)
	}
	delta, err := builder.ApplyChapterMapping(ctx, "novel-1", 3, mappingWith(
		[]common.MappedCharacter{{Name: "dokja kim"}}, nil))
	if err != nil {
		t.Fatalf("apply chapter 3: %v", err)
	}

	g := delta.Graph
	if len(g.Nodes) != 1 {
		t.Fatalf("expected one merged node, got %d", len(g.Nodes))
	}
	node := g.Nodes[0]
	if node.CanonicalName != "Kim Dokja" {
		t.Errorf("canonical name = %q, want first-appearance form", node.CanonicalName)
	}
	if node.FirstAppearance != 1 {
		t.Errorf("first appearance = %d, want 1", node.FirstAppearance)
	}
	wantAliases := []string{"Kim Dokja", "dokja kim"}
	if !reflect.DeepEqual(node.Aliases, wantAliases) {
		t.Errorf("aliases = %v, want %v", node.Aliases, wantAliases)
	}
}

func TestDeclaredAliasLinksToKnownCharacter(t *testing.T) {
	builder := NewBuilder(newMemGraphStore())
	ctx := context.Background()

	_, err := builder.ApplyChapterMapping(ctx, "novel-1", 1, mappingWith(
		[]common.MappedCharacter{{Name: "Yoo Joonghyuk"}}, nil))
	if err != nil {
		t.Fatalf("apply chapter 1: %v", err)
	}
	delta, err := builder.ApplyChapterMapping(ctx, "novel-1", 2, mappingWith(
		[]common.MappedCharacter{{Name: "The Regressor", Aliases: []string{"Yoo Joonghyuk"}}}, nil))
	if err != nil {
		t.Fatalf("apply chapter 2: %v", err)
	}

	if len(delta.Graph.Nodes) != 1 {
		t.Fatalf("expected declared alias to merge nodes, got %d nodes", len(delta.Graph.Nodes))
	}
}

func chapterMappings() map[int]*common.CharacterMapping {
	return map[int]*common.CharacterMapping{
		1: mappingWith(
			[]common.MappedCharacter{
				{Name: "Alice", Traits: []string{"curious"}},
				{Name: "Bob", Traits: []string{"loyal"}},
			},
			[]common.MappedRelationship{
				{CharacterA: "Alice", CharacterB: "Bob", Type: "allies", Sentiment: 0.5},
			}),
		2: mappingWith(
			[]common.MappedCharacter{
				{Name: "alice", Traits: []string{"brave"}},
				{Name: "Carol"},
			},
			[]common.MappedRelationship{
				{CharacterA: "alice", CharacterB: "Carol", Type: "rivals", Sentiment: -0.4},
			}),
		3: mappingWith(
			[]common.MappedCharacter{
				{Name: "Bob", Traits: []string{"loyal", "tired"}},
			},
			[]common.MappedRelationship{
				{CharacterA: "Bob", CharacterB: "Alice", Type: "rivals", Sentiment: -0.2},
			}),
	}
}

func TestRetractionOrderIndependence(t *testing.T) {
	ctx := context.Background()
	mappings := chapterMappings()

	orders := [][]int{{1, 2, 3}, {3, 1, 2}, {2, 3, 1}}
	fingerprints := make([]map[string]any, len(orders))
	for i, order := range orders {
		builder := NewBuilder(newMemGraphStore())
		var last *common.GraphDelta
		for _, ordinal := range order {
			var err error
			last, err = builder.ApplyChapterMapping(ctx, "novel-1", ordinal, mappings[ordinal])
			if err != nil {
				t.Fatalf("order %v chapter %d: %v", order, ordinal, err)
			}
		}
		fingerprints[i] = fingerprint(last.Graph)
	}

	for i := 1; i < len(fingerprints); i++ {
		if !reflect.DeepEqual(fingerprints[0], fingerprints[i]) {
			t.Errorf("order %v produced a different graph:\n%v\nvs\n%v", orders[i], fingerprints[0], fingerprints[i])
		}
	}
}

func TestReapplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mappings := chapterMappings()
	builder := NewBuilder(newMemGraphStore())

	var base *common.GraphDelta
	for _, ordinal := range []int{1, 2, 3} {
		var err error
		base, err = builder.ApplyChapterMapping(ctx, "novel-1", ordinal, mappings[ordinal])
		if err != nil {
			t.Fatalf("chapter %d: %v", ordinal, err)
		}
	}
	want := fingerprint(base.Graph)

	again, err := builder.ApplyChapterMapping(ctx, "novel-1", 2, mappings[2])
	if err != nil {
		t.Fatalf("re-apply chapter 2: %v", err)
	}
	if !reflect.DeepEqual(want, fingerprint(again.Graph)) {
		t.Errorf("re-applying an unchanged chapter altered the graph")
	}
}

func TestRetractChapterRemovesContribution(t *testing.T) {
	ctx := context.Background()
	mappings := chapterMappings()

	full := NewBuilder(newMemGraphStore())
	for _, ordinal := range []int{1, 2} {
		if _, err := full.ApplyChapterMapping(ctx, "novel-1", ordinal, mappings[ordinal]); err != nil {
			t.Fatalf("chapter %d: %v", ordinal, err)
		}
	}
	retracted, err := full.RetractChapter(ctx, "novel-1", 2)
	if err != nil {
		t.Fatalf("retract chapter 2: %v", err)
	}

	onlyOne := NewBuilder(newMemGraphStore())
	baseline, err := onlyOne.ApplyChapterMapping(ctx, "novel-1", 1, mappings[1])
	if err != nil {
		t.Fatalf("baseline chapter 1: %v", err)
	}

	if !reflect.DeepEqual(fingerprint(baseline.Graph), fingerprint(retracted.Graph)) {
		t.Errorf("retraction left residue:\n%v\nvs baseline\n%v",
			fingerprint(retracted.Graph), fingerprint(baseline.Graph))
	}
}

func TestRetractNeverAppliedChapter(t *testing.T) {
	builder := NewBuilder(newMemGraphStore())
	_, err := builder.RetractChapter(context.Background(), "novel-1", 7)
	var consistency *ConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if consistency.ChapterOrdinal != 7 {
		t.Errorf("error ordinal = %d, want 7", consistency.ChapterOrdinal)
	}
}

func TestEdgeSentimentDecayAndType(t *testing.T) {
	ctx := context.Background()
	builder := NewBuilder(newMemGraphStore())

	_, err := builder.ApplyChapterMapping(ctx, "novel-1", 1, mappingWith(
		[]common.MappedCharacter{{Name: "Alice"}, {Name: "Bob"}},
		[]common.MappedRelationship{{CharacterA: "Alice", CharacterB: "Bob", Type: "allies", Sentiment: 0.5}}))
	if err != nil {
		t.Fatal(err)
	}
	delta, err := builder.ApplyChapterMapping(ctx, "novel-1", 2, mappingWith(
		[]common.MappedCharacter{{Name: "Alice"}, {Name: "Bob"}},
		[]common.MappedRelationship{{CharacterA: "Alice", CharacterB: "Bob", Type: "rivals", Sentiment: -0.5}}))
	if err != nil {
		t.Fatal(err)
	}

	if len(delta.Graph.Edges) != 1 {
		t.Fatalf("expected one edge, got %d", len(delta.Graph.Edges))
	}
	edge := delta.Graph.Edges[0]

	if edge.Type != "rivals" {
		t.Errorf("edge type = %q, want most recent type", edge.Type)
	}
	// 0.7*0.5 + 0.3*(-0.5)
	if math.Abs(edge.Sentiment-0.2) > 1e-9 {
		t.Errorf("edge sentiment = %v, want 0.2", edge.Sentiment)
	}
	if edge.Interactions != 2 {
		t.Errorf("interactions = %d, want 2", edge.Interactions)
	}
	if !reflect.DeepEqual(edge.Chapters, []int{1, 2}) {
		t.Errorf("chapters = %v, want [1 2]", edge.Chapters)
	}
}

type contentionStore struct {
	inner   *memGraphStore
	active  int32
	overlap int32
}

func (s *contentionStore) GetCharacterGraph(ctx context.Context, novelID string) (*common.CharacterGraph, error) {
	if atomic.AddInt32(&s.active, 1) != 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(2 * time.Millisecond)
	return s.inner.GetCharacterGraph(ctx, novelID)
}

func (s *contentionStore) SaveCharacterGraph(ctx context.Context, g *common.CharacterGraph) error {
	err := s.inner.SaveCharacterGraph(ctx, g)
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&s.active, -1)
	return err
}

func TestGraphMutationsSerializedPerNovel(t *testing.T) {
	store := &contentionStore{inner: newMemGraphStore()}
	builder := NewBuilder(store)
	ctx := context.Background()
	mappings := chapterMappings()

	var wg sync.WaitGroup
	for _, ordinal := range []int{1, 2, 3} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := builder.ApplyChapterMapping(ctx, "novel-1", ordinal, mappings[ordinal]); err != nil {
				t.Errorf("chapter %d: %v", ordinal, err)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&store.overlap) != 0 {
		t.Error("graph mutations for one novel interleaved")
	}
}
