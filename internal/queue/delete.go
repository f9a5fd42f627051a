package queue

import (
	"context"
	"encoding/json"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chogerlate/NovelVizAI/internal/storage"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
	"github.com/chogerlate/NovelVizAI/pkg/store"
)

// ProcessDeleteMessage removes a novel, its chapters, analyses, and
// character graph, plus the raw text object in S3.
func ProcessDeleteMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	db store.Storage,
	msg string,
) error {
	data := new(DeleteNovelMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}

	novel, err := db.GetNovel(ctx, data.NovelID)
	if err != nil {
		return err
	}
	if novel == nil {
		logger.Warn("[Queue] Delete for unknown novel, dropping", "novel", data.NovelID)
		return nil
	}

	if err := db.DeleteNovel(ctx, novel.ID); err != nil {
		return err
	}

	if err := storage.DeleteNovelText(ctx, s3Client, novel.SourceKey); err != nil {
		logger.Warn("[Queue] Failed to delete S3 novel text", "key", novel.SourceKey, "err", err)
	}

	logger.Info("[Queue] Deleted novel", "novel", novel.ID)
	return nil
}
