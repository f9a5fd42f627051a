package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/chogerlate/NovelVizAI/internal/queue"
	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/internal/storage"
	"github.com/chogerlate/NovelVizAI/internal/util"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// CreateNovelHandler accepts a novel's raw text, stores it in S3, and
// queues ingestion.
func CreateNovelHandler(c echo.Context) error {
	type createNovelBody struct {
		Title  string `json:"title" validate:"required"`
		Author string `json:"author"`
		Text   string `json:"text" validate:"required"`
	}

	type createNovelResponse struct {
		Message string        `json:"message"`
		Novel   *common.Novel `json:"novel,omitempty"`
	}

	data := new(createNovelBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createNovelResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createNovelResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	novelID := gonanoid.Must(12)
	sourceKey, err := storage.PutNovelText(ctx, app.S3, novelID, []byte(data.Text))
	if err != nil {
		logger.Error("Failed to upload novel text", "err", err)
		return c.JSON(http.StatusInternalServerError, createNovelResponse{
			Message: "Internal server error",
		})
	}

	novel := &common.Novel{
		ID:        novelID,
		Title:     util.SanitizePostgresText(data.Title),
		Author:    util.SanitizePostgresText(data.Author),
		SourceKey: sourceKey,
	}
	if err := app.DB.CreateNovel(ctx, novel); err != nil {
		logger.Error("Failed to create novel", "err", err)
		return c.JSON(http.StatusInternalServerError, createNovelResponse{
			Message: "Internal server error",
		})
	}

	msg, err := json.Marshal(queue.IngestNovelMsg{NovelID: novel.ID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createNovelResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, msg); err != nil {
		logger.Error("Failed to publish to ingest_queue", "err", err)
	}

	return c.JSON(http.StatusOK, createNovelResponse{
		Message: "Novel created successfully",
		Novel:   novel,
	})
}
