package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chogerlate/NovelVizAI/pkg/analysis"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
	"github.com/chogerlate/NovelVizAI/pkg/store"
)

// ProcessAnalyzeMessage runs the analysis pipeline for one chapter.
func ProcessAnalyzeMessage(
	ctx context.Context,
	analysisClient *analysis.Client,
	db store.Storage,
	msg string,
) error {
	data := new(AnalyzeChapterMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	chapter, err := db.GetChapter(ctx, data.ChapterID)
	if err != nil {
		return err
	}
	if chapter == nil {
		logger.Warn("[Queue] Analyze for unknown chapter, dropping", "chapter", data.ChapterID)
		return nil
	}

	novelCtx, err := db.GetNovelContext(ctx, chapter.NovelID)
	if err != nil {
		return fmt.Errorf("load novel context: %w", err)
	}

	mode := analysis.Mode(data.Mode)
	if mode != analysis.ModeIncremental {
		mode = analysis.ModeFull
	}

	result, err := analysisClient.AnalyzeChapter(ctx, *chapter, novelCtx, mode)
	if err != nil {
		return err
	}
	if result.ProcessingFailed {
		return fmt.Errorf("chapter %d: every facet failed", chapter.Ordinal)
	}
	return nil
}
