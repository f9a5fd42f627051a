package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

// chapterListing is a chapter without its full text, for list
// responses.
type chapterListing struct {
	ID                 string `json:"id"`
	Ordinal            int    `json:"ordinal"`
	Title              string `json:"title"`
	WordCount          int    `json:"word_count"`
	ReadingTimeMinutes int    `json:"reading_time_minutes"`
}

func GetChaptersHandler(c echo.Context) error {
	type getChaptersParams struct {
		NovelID string `param:"id" validate:"required"`
	}

	type getChaptersResponse struct {
		Message  string           `json:"message"`
		Chapters []chapterListing `json:"chapters,omitempty"`
	}

	params := new(getChaptersParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getChaptersResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getChaptersResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	chapters, err := app.DB.ListChapters(ctx, params.NovelID)
	if err != nil {
		logger.Error("Failed to list chapters", "err", err)
		return c.JSON(http.StatusInternalServerError, getChaptersResponse{
			Message: "Internal server error",
		})
	}

	listings := make([]chapterListing, 0, len(chapters))
	for _, chapter := range chapters {
		listings = append(listings, chapterListing{
			ID:                 chapter.ID,
			Ordinal:            chapter.Ordinal,
			Title:              chapter.Title,
			WordCount:          chapter.WordCount,
			ReadingTimeMinutes: chapter.ReadingTimeMinutes,
		})
	}

	return c.JSON(http.StatusOK, getChaptersResponse{
		Message:  "OK",
		Chapters: listings,
	})
}

func GetChapterHandler(c echo.Context) error {
	type getChapterParams struct {
		ChapterID string `param:"id" validate:"required"`
	}

	type getChapterResponse struct {
		Message string          `json:"message"`
		Chapter *common.Chapter `json:"chapter,omitempty"`
	}

	params := new(getChapterParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getChapterResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getChapterResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	chapter, err := app.DB.GetChapter(ctx, params.ChapterID)
	if err != nil {
		logger.Error("Failed to get chapter", "err", err)
		return c.JSON(http.StatusInternalServerError, getChapterResponse{
			Message: "Internal server error",
		})
	}
	if chapter == nil {
		return c.JSON(http.StatusNotFound, getChapterResponse{
			Message: "Chapter not found",
		})
	}

	return c.JSON(http.StatusOK, getChapterResponse{
		Message: "OK",
		Chapter: chapter,
	})
}
