package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// UpsertChapters writes a batch of chapters inside one transaction.
// Conflicts on (novel_id, ordinal) update the content in place and keep
// the existing chapter id, which keeps analyses attached when a novel
// is re-ingested.
func (s *DBStorage) UpsertChapters(ctx context.Context, chapters []common.Chapter) ([]common.Chapter, error) {
	if len(chapters) == 0 {
		return nil, nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := make([]common.Chapter, 0, len(chapters))
	for _, chapter := range chapters {
		row := tx.QueryRow(ctx, `
			INSERT INTO chapters (id, novel_id, ordinal, title, content, word_count, reading_time_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (novel_id, ordinal) DO UPDATE SET
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				word_count = EXCLUDED.word_count,
				reading_time_minutes = EXCLUDED.reading_time_minutes
			RETURNING id, created_at`,
			chapter.ID, chapter.NovelID, chapter.Ordinal, chapter.Title,
			chapter.Content, chapter.WordCount, chapter.ReadingTimeMinutes,
		)
		if err := row.Scan(&chapter.ID, &chapter.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, chapter)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Debug("[Store] upserted chapters", "novel", chapters[0].NovelID, "chapters", len(out))
	return out, nil
}

func (s *DBStorage) GetChapter(ctx context.Context, chapterID string) (*common.Chapter, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT id, novel_id, ordinal, title, content, word_count, reading_time_minutes, created_at
		FROM chapters
		WHERE id = $1`,
		chapterID,
	)

	var chapter common.Chapter
	err := row.Scan(&chapter.ID, &chapter.NovelID, &chapter.Ordinal, &chapter.Title,
		&chapter.Content, &chapter.WordCount, &chapter.ReadingTimeMinutes, &chapter.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (s *DBStorage) ListChapters(ctx context.Context, novelID string) ([]common.Chapter, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, novel_id, ordinal, title, content, word_count, reading_time_minutes, created_at
		FROM chapters
		WHERE novel_id = $1
		ORDER BY ordinal`,
		novelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chapters := []common.Chapter{}
	for rows.Next() {
		var chapter common.Chapter
		if err := rows.Scan(&chapter.ID, &chapter.NovelID, &chapter.Ordinal, &chapter.Title,
			&chapter.Content, &chapter.WordCount, &chapter.ReadingTimeMinutes, &chapter.CreatedAt); err != nil {
			return nil, err
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

func (s *DBStorage) DeleteChaptersAfter(ctx context.Context, novelID string, lastOrdinal int) error {
	tag, err := s.conn.Exec(ctx, `
		DELETE FROM chapters
		WHERE novel_id = $1 AND ordinal > $2`,
		novelID, lastOrdinal,
	)
	if err != nil {
		return err
	}
	logger.Debug("[Store] deleted trailing chapters", "novel", novelID, "after", lastOrdinal, "rows", tag.RowsAffected())
	return nil
}
