package routes

import (
	"errors"
	"net/http"

	"github.com/meridian-kg/backend/internal/server/middleware"
	"github.com/meridian-kg/backend/pkg/store"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// GetGraphStatusHandler is the cheap polling endpoint. Status keeps the
// wire encoding ("topics_found:A|B|C", "failed:reason"), the decoded
// fields are included alongside for clients that do not parse it.
func GetGraphStatusHandler(c echo.Context) error {
	type statusResponse struct {
		UUID   string   `json:"uuid"`
		Title  string   `json:"title"`
		Status string   `json:"status"`
		Phase  string   `json:"phase"`
		Topics []string `json:"topics,omitempty"`
		Reason string   `json:"reason,omitempty"`
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

	state, err := record.State()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, statusResponse{
		UUID:   record.UUID.String(),
		Title:  record.Title,
		Status: record.Status,
		Phase:  state.Phase.String(),
		Topics: state.Topics,
		Reason: state.Reason,
	})
}
