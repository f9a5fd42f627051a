package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/chogerlate/NovelVizAI/pkg/store"
)

// App bundles the shared clients every route handler needs.
type App struct {
	DB    store.Storage
	Queue *amqp091.Channel
	S3    *s3.Client
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(db store.Storage, queue *amqp091.Channel, s3Client *s3.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DB:    db,
				Queue: queue,
				S3:    s3Client,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
