package routes

import (
	"encoding/json"
	"net/http"

	"github.com/meridian-kg/backend/internal/queue"
	"github.com/meridian-kg/backend/internal/server/middleware"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/planner"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	_ "github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CreateGraphHandler accepts a generation request, persists the graph
// row in its initial state and enqueues the job. The pipeline itself
// runs on a worker, the response only carries the uuid to poll.
func CreateGraphHandler(c echo.Context) error {
	type createGraphBody struct {
		Query string `json:"query" validate:"required"`
		Mode  string `json:"mode"`
	}

	type createGraphResponse struct {
		Message string `json:"message,omitempty"`
		UUID    string `json:"uuid,omitempty"`
	}

	data := new(createGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createGraphResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	id := uuid.New()
	graphs := graphstore.NewGraphDBStore(app.DBConn)
	if err := graphs.CreateGraph(ctx, id, user.UserID, data.Query); err != nil {
		logger.Error("Failed to create graph", "err", err)
		return c.JSON(http.StatusInternalServerError, createGraphResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.GenerateGraphMsg{
		UUID:   id.String(),
		Query:  data.Query,
		UserID: user.UserID,
		Mode:   string(planner.ParseMode(data.Mode)),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal generate message", "err", err)
		return c.JSON(http.StatusInternalServerError, createGraphResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, queue.GenerateQueue, payload); err != nil {
		logger.Error("Failed to enqueue generate message", "uuid", id, "err", err)
		return c.JSON(http.StatusInternalServerError, createGraphResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createGraphResponse{
		Message: "Graph generation started",
		UUID:    id.String(),
	})
}
