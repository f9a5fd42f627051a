package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

func marshalField(field string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", field, err)
	}
	return raw, nil
}

func unmarshalField(field string, raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", field, err)
	}
	return nil
}

// SaveChapterAnalysis writes the full analysis document in one
// statement, replacing any prior version wholesale.
func (s *DBStorage) SaveChapterAnalysis(ctx context.Context, analysis *common.ChapterAnalysis) error {
	fields := []struct {
		name  string
		value any
	}{
		{"summary", analysis.Summary},
		{"sentiment", analysis.Sentiment},
		{"themes", analysis.Themes},
		{"literary_elements", analysis.LiteraryElements},
		{"character_mapping", analysis.CharacterMapping},
		{"reading_analytics", analysis.ReadingAnalytics},
		{"facet_status", analysis.FacetStatus},
		{"issues", analysis.Issues},
	}
	payloads := make([][]byte, len(fields))
	for i, field := range fields {
		raw, err := marshalField(field.name, field.value)
		if err != nil {
			return err
		}
		payloads[i] = raw
	}

	_, err := s.conn.Exec(ctx, `
		INSERT INTO chapter_analyses (
			chapter_id, novel_id, chapter_ordinal, analysis_version, roster_size,
			summary, sentiment, themes, literary_elements, character_mapping,
			reading_analytics, facet_status, issues, processing_failed, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (chapter_id) DO UPDATE SET
			chapter_ordinal = EXCLUDED.chapter_ordinal,
			analysis_version = EXCLUDED.analysis_version,
			roster_size = EXCLUDED.roster_size,
			summary = EXCLUDED.summary,
			sentiment = EXCLUDED.sentiment,
			themes = EXCLUDED.themes,
			literary_elements = EXCLUDED.literary_elements,
			character_mapping = EXCLUDED.character_mapping,
			reading_analytics = EXCLUDED.reading_analytics,
			facet_status = EXCLUDED.facet_status,
			issues = EXCLUDED.issues,
			processing_failed = EXCLUDED.processing_failed,
			processed_at = EXCLUDED.processed_at`,
		analysis.ChapterID, analysis.NovelID, analysis.ChapterOrdinal,
		analysis.AnalysisVersion, analysis.RosterSize,
		payloads[0], payloads[1], payloads[2], payloads[3], payloads[4],
		payloads[5], payloads[6], payloads[7],
		analysis.ProcessingFailed, analysis.ProcessedAt,
	)
	if err != nil {
		return err
	}

	logger.Debug("[Store] saved chapter analysis",
		"chapter", analysis.ChapterID,
		"version", analysis.AnalysisVersion,
	)
	return nil
}

func (s *DBStorage) GetChapterAnalysis(ctx context.Context, chapterID string) (*common.ChapterAnalysis, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT chapter_id, novel_id, chapter_ordinal, analysis_version, roster_size,
			summary, sentiment, themes, literary_elements, character_mapping,
			reading_analytics, facet_status, issues, processing_failed, processed_at
		FROM chapter_analyses
		WHERE chapter_id = $1`,
		chapterID,
	)

	var analysis common.ChapterAnalysis
	payloads := make([][]byte, 8)
	err := row.Scan(
		&analysis.ChapterID, &analysis.NovelID, &analysis.ChapterOrdinal,
		&analysis.AnalysisVersion, &analysis.RosterSize,
		&payloads[0], &payloads[1], &payloads[2], &payloads[3], &payloads[4],
		&payloads[5], &payloads[6], &payloads[7],
		&analysis.ProcessingFailed, &analysis.ProcessedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name  string
		value any
	}{
		{"summary", &analysis.Summary},
		{"sentiment", &analysis.Sentiment},
		{"themes", &analysis.Themes},
		{"literary_elements", &analysis.LiteraryElements},
		{"character_mapping", &analysis.CharacterMapping},
		{"reading_analytics", &analysis.ReadingAnalytics},
		{"facet_status", &analysis.FacetStatus},
		{"issues", &analysis.Issues},
	}
	for i, field := range fields {
		if err := unmarshalField(field.name, payloads[i], field.value); err != nil {
			return nil, err
		}
	}
	return &analysis, nil
}

// GetNovelContext assembles the prompt context: title and author from
// the novel row, the roster from the character graph, and concise
// digests of every successfully analyzed chapter in ordinal order.
func (s *DBStorage) GetNovelContext(ctx context.Context, novelID string) (common.NovelContext, error) {
	novelCtx := common.NovelContext{NovelID: novelID}

	novel, err := s.GetNovel(ctx, novelID)
	if err != nil {
		return novelCtx, err
	}
	if novel == nil {
		return novelCtx, fmt.Errorf("novel %s not found", novelID)
	}
	novelCtx.Title = novel.Title
	novelCtx.Author = novel.Author

	graph, err := s.GetCharacterGraph(ctx, novelID)
	if err != nil {
		return novelCtx, err
	}
	if graph != nil {
		novelCtx.KnownCharacters = rosterFromGraph(graph)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT chapter_ordinal, COALESCE(summary->>'concise', '')
		FROM chapter_analyses
		WHERE novel_id = $1 AND processing_failed = FALSE
		ORDER BY chapter_ordinal`,
		novelID,
	)
	if err != nil {
		return novelCtx, err
	}
	defer rows.Close()

	for rows.Next() {
		var digest common.ChapterDigest
		if err := rows.Scan(&digest.Ordinal, &digest.Concise); err != nil {
			return novelCtx, err
		}
		if digest.Concise == "" {
			continue
		}
		novelCtx.ChapterDigests = append(novelCtx.ChapterDigests, digest)
	}
	return novelCtx, rows.Err()
}

func rosterFromGraph(graph *common.CharacterGraph) []common.RosterEntry {
	roster := make([]common.RosterEntry, 0, len(graph.Nodes))
	for _, node := range graph.Nodes {
		lastActive := node.FirstAppearance
		for _, mention := range node.Mentions {
			if mention.Chapter > lastActive {
				lastActive = mention.Chapter
			}
		}
		roster = append(roster, common.RosterEntry{
			CanonicalID:       node.ID,
			Name:              node.CanonicalName,
			Aliases:           node.Aliases,
			LastActiveChapter: lastActive,
		})
	}
	return roster
}
