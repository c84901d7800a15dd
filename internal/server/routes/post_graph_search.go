package routes

import (
	"errors"
	"net/http"

	"github.com/meridian-kg/backend/internal/server/middleware"
	"github.com/meridian-kg/backend/pkg/store"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	_ "github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SearchGraphHandler runs a similarity search over the documents
// retrieved for one graph. Useful for surfacing the raw sources behind
// an article.
func SearchGraphHandler(c echo.Context) error {
	type searchBody struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit"`
	}

	type searchResult struct {
		Source    string `json:"source"`
		ChunkType string `json:"chunk_type"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		Content   string `json:"content"`
	}

	data := new(searchBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if data.Limit <= 0 || data.Limit > 50 {
		data.Limit = 10
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
	docs, err := content.SearchSimilar(ctx, id, data.Query, data.Limit)
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	results := make([]searchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, searchResult{
			Source:    string(doc.Source),
			ChunkType: string(doc.ChunkType),
			Title:     doc.Title,
			URL:       doc.URL,
			Content:   doc.Content,
		})
	}

	return c.JSON(http.StatusOK, results)
}
