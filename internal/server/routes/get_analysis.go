package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// GetChapterAnalysisHandler returns a chapter's analysis document. The
// response always carries facet_status, so consumers can tell an
// unavailable facet from an empty one.
func GetChapterAnalysisHandler(c echo.Context) error {
	type getAnalysisParams struct {
		ChapterID string `param:"id" validate:"required"`
	}

	type getAnalysisResponse struct {
		Message  string                  `json:"message"`
		Analysis *common.ChapterAnalysis `json:"analysis,omitempty"`
	}

	params := new(getAnalysisParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getAnalysisResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getAnalysisResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	analysis, err := app.DB.GetChapterAnalysis(ctx, params.ChapterID)
	if err != nil {
		logger.Error("Failed to get chapter analysis", "err", err)
		return c.JSON(http.StatusInternalServerError, getAnalysisResponse{
			Message: "Internal server error",
		})
	}
	if analysis == nil {
		return c.JSON(http.StatusNotFound, getAnalysisResponse{
			Message: "Chapter has not been analyzed yet",
		})
	}

	return c.JSON(http.StatusOK, getAnalysisResponse{
		Message:  "OK",
		Analysis: analysis,
	})
}
