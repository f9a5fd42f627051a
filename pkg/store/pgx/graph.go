package pgx

import (
	"context"
	"encoding/json"
	"errors"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

func (s *DBStorage) GetCharacterGraph(ctx context.Context, novelID string) (*common.CharacterGraph, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT graph
		FROM character_graphs
		WHERE novel_id = $1`,
		novelID,
	)

	var raw []byte
	err := row.Scan(&raw)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var graph common.CharacterGraph
	if err := json.Unmarshal(raw, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

func (s *DBStorage) SaveCharacterGraph(ctx context.Context, graph *common.CharacterGraph) error {
	raw, err := json.Marshal(graph)
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO character_graphs (novel_id, graph, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (novel_id) DO UPDATE SET
			graph = EXCLUDED.graph,
			updated_at = now()`,
		graph.NovelID, raw,
	)
	if err != nil {
		return err
	}

	logger.Debug("[Store] saved character graph",
		"novel", graph.NovelID,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
	)
	return nil
}
