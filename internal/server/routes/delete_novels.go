package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chogerlate/NovelVizAI/internal/queue"
	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// DeleteNovelHandler queues removal of a novel and everything derived
// from it.
func DeleteNovelHandler(c echo.Context) error {
	type deleteNovelParams struct {
		NovelID string `param:"id" validate:"required"`
	}

	type deleteNovelResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteNovelParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteNovelResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteNovelResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	novel, err := app.DB.GetNovel(ctx, params.NovelID)
	if err != nil {
		logger.Error("Failed to get novel", "err", err)
		return c.JSON(http.StatusInternalServerError, deleteNovelResponse{
			Message: "Internal server error",
		})
	}
	if novel == nil {
		return c.JSON(http.StatusNotFound, deleteNovelResponse{
			Message: "Novel not found",
		})
	}

	msg, err := json.Marshal(queue.DeleteNovelMsg{NovelID: novel.ID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, deleteNovelResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.DeleteQueue, msg); err != nil {
		logger.Error("Failed to publish to delete_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, deleteNovelResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, deleteNovelResponse{
		Message: "Deletion queued",
	})
}
