package pgx

import (
	"context"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

func (s *DBStorage) CreateNovel(ctx context.Context, novel *common.Novel) error {
	row := s.conn.QueryRow(ctx, `
		INSERT INTO novels (id, title, author, source_key)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		novel.ID, novel.Title, novel.Author, novel.SourceKey,
	)
	return row.Scan(&novel.CreatedAt, &novel.UpdatedAt)
}

func (s *DBStorage) GetNovel(ctx context.Context, novelID string) (*common.Novel, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT id, title, author, source_key, created_at, updated_at
		FROM novels
		WHERE id = $1`,
		novelID,
	)

	var novel common.Novel
	err := row.Scan(&novel.ID, &novel.Title, &novel.Author, &novel.SourceKey, &novel.CreatedAt, &novel.UpdatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &novel, nil
}

func (s *DBStorage) ListNovels(ctx context.Context) ([]common.Novel, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, title, author, source_key, created_at, updated_at
		FROM novels
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	novels := []common.Novel{}
	for rows.Next() {
		var novel common.Novel
		if err := rows.Scan(&novel.ID, &novel.Title, &novel.Author, &novel.SourceKey, &novel.CreatedAt, &novel.UpdatedAt); err != nil {
			return nil, err
		}
		novels = append(novels, novel)
	}
	return novels, rows.Err()
}

// DeleteNovel removes the novel row; chapters, analyses, and the
// character graph go with it through ON DELETE CASCADE.
func (s *DBStorage) DeleteNovel(ctx context.Context, novelID string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM novels WHERE id = $1`, novelID)
	if err != nil {
		return err
	}
	logger.Debug("[Store] deleted novel", "novel", novelID, "rows", tag.RowsAffected())
	return nil
}
