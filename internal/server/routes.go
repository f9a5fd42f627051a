package server

import (
	"github.com/chogerlate/NovelVizAI/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Novel routes
	apiRoutes.POST("/novels", routes.CreateNovelHandler)
	apiRoutes.GET("/novels", routes.GetNovelsHandler)
	apiRoutes.GET("/novels/:id", routes.GetNovelHandler)
	apiRoutes.DELETE("/novels/:id", routes.DeleteNovelHandler)

	// Chapter routes
	apiRoutes.GET("/novels/:id/chapters", routes.GetChaptersHandler)
	apiRoutes.GET("/chapters/:id", routes.GetChapterHandler)
	apiRoutes.GET("/chapters/:id/analysis", routes.GetChapterAnalysisHandler)

	// Analysis routes
	apiRoutes.POST("/novels/:id/analyze", routes.AnalyzeNovelHandler)
	apiRoutes.POST("/chapters/:id/analyze", routes.AnalyzeChapterHandler)

	// Graph routes
	apiRoutes.GET("/novels/:id/graph", routes.GetCharacterGraphHandler)
}
