package graph

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// ConsistencyError reports a graph mutation that cannot be reconciled,
// e.g. retracting a chapter that was never applied. It is fatal for that
// novel's graph update only; other novels are unaffected.
type ConsistencyError struct {
	NovelID        string
	ChapterOrdinal int
	Reason         string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("graph consistency: novel %s chapter %d: %s", e.NovelID, e.ChapterOrdinal, e.Reason)
}

// Store is the slice of the persistence gateway the builder needs.
// GetCharacterGraph returns nil without error when no graph exists yet.
type Store interface {
	GetCharacterGraph(ctx context.Context, novelID string) (*common.CharacterGraph, error)
	SaveCharacterGraph(ctx context.Context, graph *common.CharacterGraph) error
}

// Builder folds per-chapter character mappings into novel-wide character
// graphs. All mutations for one novel are serialized: at most one
// apply/retract sequence is in flight per novel at a time, while
// different novels proceed independently.
type Builder struct {
	store Store

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// NewBuilder creates a Builder on top of the given store.
func NewBuilder(store Store) *Builder {
	return &Builder{
		store: store,
		locks: map[string]*semaphore.Weighted{},
	}
}

func (b *Builder) lockFor(novelID string) *semaphore.Weighted {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[novelID]
	if !ok {
		lock = semaphore.NewWeighted(1)
		b.locks[novelID] = lock
	}
	return lock
}

// ApplyChapterMapping folds one chapter's character mapping into the
// novel's graph. Any prior contribution of the same chapter is retracted
// first, so re-analysis in any order leaves the graph reflecting exactly
// the latest mapping per chapter.
func (b *Builder) ApplyChapterMapping(ctx context.Context, novelID string, chapterOrdinal int, mapping *common.CharacterMapping) (*common.GraphDelta, error) {
	lock := b.lockFor(novelID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer lock.Release(1)

	g, err := b.loadOrInit(ctx, novelID)
	if err != nil {
		return nil, err
	}

	delta := fold(g, chapterOrdinal, mapping)

	if err := b.store.SaveCharacterGraph(ctx, g); err != nil {
		return nil, fmt.Errorf("save character graph: %w", err)
	}

	logger.Info("[Graph] applied chapter mapping",
		"novel", novelID,
		"chapter", chapterOrdinal,
		"nodes_added", delta.NodesAdded,
		"nodes_updated", delta.NodesUpdated,
		"edges_added", delta.EdgesAdded,
		"edges_updated", delta.EdgesUpdated,
	)

	return delta, nil
}

// RetractChapter removes one chapter's contribution from the novel's
// graph without applying a replacement. Retracting a chapter that never
// contributed yields a ConsistencyError.
func (b *Builder) RetractChapter(ctx context.Context, novelID string, chapterOrdinal int) (*common.GraphDelta, error) {
	lock := b.lockFor(novelID)
	if err := lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer lock.Release(1)

	g, err := b.store.GetCharacterGraph(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("load character graph: %w", err)
	}
	if g == nil || !hasContribution(g, chapterOrdinal) {
		return nil, &ConsistencyError{
			NovelID:        novelID,
			ChapterOrdinal: chapterOrdinal,
			Reason:         "retraction of a chapter that was never applied",
		}
	}

	delta := fold(g, chapterOrdinal, nil)

	if err := b.store.SaveCharacterGraph(ctx, g); err != nil {
		return nil, fmt.Errorf("save character graph: %w", err)
	}

	logger.Info("[Graph] retracted chapter",
		"novel", novelID,
		"chapter", chapterOrdinal,
		"nodes_removed", delta.NodesRemoved,
		"edges_removed", delta.EdgesRemoved,
	)

	return delta, nil
}

func (b *Builder) loadOrInit(ctx context.Context, novelID string) (*common.CharacterGraph, error) {
	g, err := b.store.GetCharacterGraph(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("load character graph: %w", err)
	}
	if g == nil {
		g = &common.CharacterGraph{NovelID: novelID}
	}
	return g, nil
}

func hasContribution(g *common.CharacterGraph, chapterOrdinal int) bool {
	for _, node := range g.Nodes {
		for _, mention := range node.Mentions {
			if mention.Chapter == chapterOrdinal {
				return true
			}
		}
	}
	for _, edge := range g.Edges {
		for _, ev := range edge.Evidence {
			if ev.Chapter == chapterOrdinal {
				return true
			}
		}
	}
	return false
}
