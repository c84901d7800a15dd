package routes

import (
	"net/http"
	"time"

	"github.com/meridian-kg/backend/internal/server/middleware"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	"github.com/labstack/echo/v4"
)

func GetGraphsHandler(c echo.Context) error {
	type graph struct {
		UUID      string    `json:"uuid"`
		Title     string    `json:"title"`
		Query     string    `json:"query"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn
	graphs := graphstore.NewGraphDBStore(conn)

	records, err := graphs.ListGraphs(ctx, user.UserID)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	response := make([]graph, 0, len(records))
	for _, r := range records {
		response = append(response, graph{
			UUID:      r.UUID.String(),
			Title:     r.Title,
			Query:     r.Query,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, response)
}
