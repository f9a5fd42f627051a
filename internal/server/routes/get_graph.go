package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chogerlate/NovelVizAI/internal/server/middleware"
	"github.com/chogerlate/NovelVizAI/pkg/common"
	"github.com/chogerlate/NovelVizAI/pkg/logger"
)

func GetCharacterGraphHandler(c echo.Context) error {
	type getGraphParams struct {
		NovelID string `param:"id" validate:"required"`
	}

	type getGraphResponse struct {
		Message string                 `json:"message"`
		Graph   *common.CharacterGraph `json:"graph,omitempty"`
	}

	params := new(getGraphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Invalid request",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Invalid request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	novel, err := app.DB.GetNovel(ctx, params.NovelID)
	if err != nil {
		logger.Error("Failed to get novel", "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}
	if novel == nil {
		return c.JSON(http.StatusNotFound, getGraphResponse{
			Message: "Novel not found",
		})
	}

	graph, err := app.DB.GetCharacterGraph(ctx, params.NovelID)
	if err != nil {
		logger.Error("Failed to get character graph", "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}
	if graph == nil {
		// no chapter has contributed yet
		graph = &common.CharacterGraph{
			NovelID: params.NovelID,
			Nodes:   []common.CharacterNode{},
			Edges:   []common.RelationshipEdge{},
		}
	}

	return c.JSON(http.StatusOK, getGraphResponse{
		Message: "OK",
		Graph:   graph,
	})
}
