package middleware

import (
	"github.com/meridian-kg/backend/internal/util"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/meridian-kg/backend/pkg/ai"
	oai "github.com/meridian-kg/backend/pkg/ai/ollama"
	gai "github.com/meridian-kg/backend/pkg/ai/openai"
	"github.com/meridian-kg/backend/pkg/logger"
)

// AppUser identifies the caller of a request.
type AppUser struct {
	UserID string
}

// App bundles the shared infrastructure handed to every route. QueueConn
// is kept alongside the publish channel because streaming routes need a
// dedicated channel per consumer.
type App struct {
	DBConn    *pgxpool.Pool
	Queue     *amqp091.Channel
	QueueConn *amqp091.Connection
	AiClient  ai.Client
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// NewAIClient builds the AI client selected by AI_ADAPTER. The default
// is the OpenAI-compatible client, "ollama" switches to a local Ollama
// server.
func NewAIClient() ai.Client {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 5)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 5)),
		})
	}
}

// AppContextMiddleware wraps every request in an AppContext. Identity
// comes from the X-User-Id header set by the gateway, routes treat a
// nil User as unauthorized.
func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	queueConn *amqp091.Connection,
	aiClient ai.Client,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				DBConn:    db,
				Queue:     queue,
				QueueConn: queueConn,
				AiClient:  aiClient,
			}

			var user *AppUser
			if id := c.Request().Header.Get("X-User-Id"); id != "" {
				user = &AppUser{UserID: id}
			}

			cc := &AppContext{c, app, user}
			return next(cc)
		}
	}
}
