package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

func GetNovelsHandler(c echo.Context) error {
	type getNovelsResponse struct {
		Message string         `json:"message"`
		Novels  []common.Novel `json:"novels,omitempty"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	novels, err := app.DB.ListNovels(ctx)
	if err != nil {
		logger.Error("Failed to list novels", "err", err)
		return c.JSON(http.StatusInternalServerError, getNovelsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getNovelsResponse{
		Message: "OK",
		Novels:  novels,
	})
}

func GetNovelHandler(c echo.Context) error {
	type getNovelParams struct {
		NovelID string `param:"id" validate:"required"`
	}

	type getNovelResponse struct {
		Message string        `json:"message"`
		Novel   *common.Novel `json:"novel,omitempty"`
	}

	params := new(getNovelParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getNovelResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getNovelResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	novel, err := app.DB.GetNovel(ctx, params.NovelID)
	if err != nil {
		logger.Error("Failed to get novel", "err", err)
		return c.JSON(http.StatusInternalServerError, getNovelResponse{
			Message: "Internal server error",
		})
	}
	if novel == nil {
		return c.JSON(http.StatusNotFound, getNovelResponse{
			Message: "Novel not found",
		})
	}

	return c.JSON(http.StatusOK, getNovelResponse{
		Message: "OK",
		Novel:   novel,
	})
}
