package routes

import (
	"errors"
	"net/http"

	"github.com/meridian-kg/backend/internal/server/middleware"
	"github.com/meridian-kg/backend/pkg/common"
	"github.com/meridian-kg/backend/pkg/store"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns one graph with its full payload. Nodes and
// edges are empty until the run reaches "done".
func GetGraphHandler(c echo.Context) error {
	type graphResponse struct {
		UUID   string        `json:"uuid"`
		Title  string        `json:"title"`
		Query  string        `json:"query"`
		Status string        `json:"status"`
		Nodes  []common.Node `json:"nodes"`
		Edges  []common.Edge `json:"edges"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid graph id"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	graphs := graphstore.NewGraphDBStore(conn)

	record, err := graphs.GetGraph(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Graph not found"})
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if record.UserID != user.UserID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Graph not found"})
	}

	response := graphResponse{
		UUID:   record.UUID.String(),
		Title:  record.Title,
		Query:  record.Query,
		Status: record.Status,
		Nodes:  []common.Node{},
		Edges:  []common.Edge{},
	}
	if record.Payload != nil {
		response.Nodes = record.Payload.Nodes
		response.Edges = record.Payload.Edges
	}

	return c.JSON(http.StatusOK, response)
}
