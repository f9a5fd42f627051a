package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"

	"github.com/chogerlate/NovelVizAI/internal/storage"
	"github.com/chogerlate/NovelVizAI/pkg/analysis"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/graph"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
	"github.com/chogerlate/NovelVizAI/pkg/store"
)

// ProcessIngestMessage splits a novel's raw text into chapters, persists
// them, reconciles chapters that disappeared on re-ingest, and queues
// analysis for every chapter that has no successful analysis yet.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	db store.Storage,
	builder *graph.Builder,
	ch *amqp091.Channel,
	msg string,
) error {
	data := new(IngestNovelMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	novel, err := db.GetNovel(ctx, data.NovelID)
	if err != nil {
		return err
	}
	if novel == nil {
		logger.Warn("[Queue] Ingest for unknown novel, dropping", "novel", data.NovelID)
		return nil
	}

	text, err := storage.GetNovelText(ctx, s3Client, novel.SourceKey)
	if err != nil {
		return fmt.Errorf("download novel text: %w", err)
	}

	splits := analysis.SplitChapters(string(text))
	if len(splits) == 0 {
		logger.Warn("[Queue] Novel text produced no chapters", "novel", novel.ID)
		return nil
	}

	existing, err := db.ListChapters(ctx, novel.ID)
	if err != nil {
		return err
	}

	// Re-ingest with fewer chapters: retract the trailing chapters'
	// graph contributions before their rows disappear.
	if len(existing) > len(splits) {
		for _, chapter := range existing {
			if chapter.Ordinal <= len(splits) {
				continue
			}
			if _, err := builder.RetractChapter(ctx, novel.ID, chapter.Ordinal); err != nil {
				var consistencyErr *graph.ConsistencyError
				if errors.As(err, &consistencyErr) {
					// never analyzed, nothing to retract
					continue
				}
				return fmt.Errorf("retract chapter %d: %w", chapter.Ordinal, err)
			}
		}
		if err := db.DeleteChaptersAfter(ctx, novel.ID, len(splits)); err != nil {
			return err
		}
	}

	chapters := make([]common.Chapter, len(splits))
	for i, split := range splits {
		chapters[i] = common.Chapter{
			ID:                 gonanoid.Must(12),
			NovelID:            novel.ID,
			Ordinal:            i + 1,
			Title:              split.Title,
			Content:            split.Content,
			WordCount:          split.WordCount,
			ReadingTimeMinutes: split.ReadingTimeMinutes,
		}
	}
	persisted, err := db.UpsertChapters(ctx, chapters)
	if err != nil {
		return fmt.Errorf("persist chapters: %w", err)
	}

	queued := 0
	for _, chapter := range persisted {
		prior, err := db.GetChapterAnalysis(ctx, chapter.ID)
		if err != nil {
			return err
		}
		if prior != nil && !prior.ProcessingFailed {
			continue
		}

		analyzeMsg, err := json.Marshal(AnalyzeChapterMsg{
			NovelID:   novel.ID,
			ChapterID: chapter.ID,
			Mode:      string(analysis.ModeFull),
		})
		if err != nil {
			return err
		}
		if err := PublishFIFO(ch, AnalyzeQueue, analyzeMsg); err != nil {
			return fmt.Errorf("queue chapter analysis: %w", err)
		}
		queued++
	}

	logger.Info("[Queue] Ingested novel",
		"novel", novel.ID,
		"chapters", len(persisted),
		"queued", queued,
		"skipped", len(persisted)-queued,
	)
	return nil
}
