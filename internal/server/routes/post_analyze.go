package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chogerlate/NovelVizAI/internal/queue"
	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/pkg/analysis"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// AnalyzeNovelHandler queues a re-analysis of every chapter of a novel.
// Mode defaults to incremental; full re-analysis recomputes every facet.
func AnalyzeNovelHandler(c echo.Context) error {
	type analyzeNovelBody struct {
		NovelID string `param:"id" validate:"required"`
		Mode    string `json:"mode" validate:"omitempty,oneof=full incremental"`
	}

	type analyzeNovelResponse struct {
		Message string `json:"message"`
		Queued  int    `json:"queued"`
	}

	data := new(analyzeNovelBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeNovelResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeNovelResponse{
			Message: "Invalid request body",
		})
	}
	if data.Mode == "" {
		data.Mode = string(analysis.ModeIncremental)
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	novel, err := app.DB.GetNovel(ctx, data.NovelID)
	if err != nil {
		logger.Error("Failed to get novel", "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeNovelResponse{
			Message: "Internal server error",
		})
	}
	if novel == nil {
		return c.JSON(http.StatusNotFound, analyzeNovelResponse{
			Message: "Novel not found",
		})
	}

	chapters, err := app.DB.ListChapters(ctx, novel.ID)
	if err != nil {
		logger.Error("Failed to list chapters", "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeNovelResponse{
			Message: "Internal server error",
		})
	}

	queued := 0
	for _, chapter := range chapters {
		msg, err := json.Marshal(queue.AnalyzeChapterMsg{
			NovelID:   novel.ID,
			ChapterID: chapter.ID,
			Mode:      data.Mode,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, analyzeNovelResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.AnalyzeQueue, msg); err != nil {
			logger.Error("Failed to publish to analyze_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, analyzeNovelResponse{
				Message: "Internal server error",
				Queued:  queued,
			})
		}
		queued++
	}

	return c.JSON(http.StatusAccepted, analyzeNovelResponse{
		Message: "Analysis queued",
		Queued:  queued,
	})
}

// AnalyzeChapterHandler queues a re-analysis of a single chapter.
func AnalyzeChapterHandler(c echo.Context) error {
	type analyzeChapterBody struct {
		ChapterID string `param:"id" validate:"required"`
		Mode      string `json:"mode" validate:"omitempty,oneof=full incremental"`
	}

	type analyzeChapterResponse struct {
		Message string `json:"message"`
	}

	data := new(analyzeChapterBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeChapterResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, analyzeChapterResponse{
			Message: "Invalid request body",
		})
	}
	if data.Mode == "" {
		data.Mode = string(analysis.ModeFull)
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	chapter, err := app.DB.GetChapter(ctx, data.ChapterID)
	if err != nil {
		logger.Error("Failed to get chapter", "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeChapterResponse{
			Message: "Internal server error",
		})
	}
	if chapter == nil {
		return c.JSON(http.StatusNotFound, analyzeChapterResponse{
			Message: "Chapter not found",
		})
	}

	msg, err := json.Marshal(queue.AnalyzeChapterMsg{
		NovelID:   chapter.NovelID,
		ChapterID: chapter.ID,
		Mode:      data.Mode,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, analyzeChapterResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.AnalyzeQueue, msg); err != nil {
		logger.Error("Failed to publish to analyze_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, analyzeChapterResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, analyzeChapterResponse{
		Message: "Analysis queued",
	})
}
