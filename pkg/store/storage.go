package store

import (
	"context"

	"github.com/chogerlate/NovelVizAI/pkg/common"
)

// Storage is the persistence gateway for novels, chapters, analyses,
// and character graphs. Implementations must be durable on return: once
// a Save method returns nil the written state survives a process crash.
//
// Get methods return (nil, nil) when the requested record does not
// exist.
type Storage interface {
	CreateNovel(ctx context.Context, novel *common.Novel) error
	GetNovel(ctx context.Context, novelID string) (*common.Novel, error)
	ListNovels(ctx context.Context) ([]common.Novel, error)
	// DeleteNovel cascades to chapters, analyses, and the character graph.
	DeleteNovel(ctx context.Context, novelID string) error

	// UpsertChapters writes a batch of chapters keyed by (novel_id,
	// ordinal) and returns the persisted rows. Re-ingesting an ordinal
	// that already exists keeps its chapter id, so analyses stay
	// attached across re-ingestion.
	UpsertChapters(ctx context.Context, chapters []common.Chapter) ([]common.Chapter, error)
	GetChapter(ctx context.Context, chapterID string) (*common.Chapter, error)
	ListChapters(ctx context.Context, novelID string) ([]common.Chapter, error)
	// DeleteChaptersAfter removes every chapter of the novel with an
	// ordinal greater than lastOrdinal.
	DeleteChaptersAfter(ctx context.Context, novelID string, lastOrdinal int) error

	GetChapterAnalysis(ctx context.Context, chapterID string) (*common.ChapterAnalysis, error)
	SaveChapterAnalysis(ctx context.Context, analysis *common.ChapterAnalysis) error

	// GetNovelContext assembles the cumulative prompt context for a
	// novel: the known-character roster from the character graph and the
	// concise digests of already-analyzed chapters.
	GetNovelContext(ctx context.Context, novelID string) (common.NovelContext, error)

	GetCharacterGraph(ctx context.Context, novelID string) (*common.CharacterGraph, error)
	SaveCharacterGraph(ctx context.Context, graph *common.CharacterGraph) error
}
