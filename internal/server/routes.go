package server

import (
	"github.com/meridian-kg/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Graph routes
	apiRoutes.POST("/graphs", routes.CreateGraphHandler)
	apiRoutes.GET("/graphs", routes.GetGraphsHandler)
	apiRoutes.GET("/graphs/:uuid", routes.GetGraphHandler)
	apiRoutes.GET("/graphs/:uuid/status", routes.GetGraphStatusHandler)
	apiRoutes.GET("/graphs/:uuid/events", routes.StreamGraphEventsHandler)
	apiRoutes.POST("/graphs/:uuid/search", routes.SearchGraphHandler)
	apiRoutes.DELETE("/graphs/:uuid", routes.DeleteGraphHandler)
}
