package routes

import (
	"errors"
	"net/http"

	"github.com/meridian-kg/backend/internal/server/middleware"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/store"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DeleteGraphHandler removes a graph and the retrieved documents of its
// generation run.
func DeleteGraphHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid graph id"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	graphs := graphstore.NewGraphDBStore(app.DBConn)

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

	content := graphstore.NewContentDBStore(app.DBConn, app.AiClient)
	if err := content.DeleteBatch(ctx, id); err != nil {
		logger.Error("Failed to delete graph documents", "uuid", id, "err", err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
	if err := graphs.DeleteGraph(ctx, id); err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Graph deleted"})
}
