package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/meridian-kg/backend/internal/queue"
	"github.com/meridian-kg/backend/internal/server/middleware"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/pipeline"
	"github.com/meridian-kg/backend/pkg/store"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StreamGraphEventsHandler streams the progress events of one
// generation run as server-sent events. The stream starts with a
// snapshot of the current status so late subscribers catch up, then
// relays events from the run's topic binding until a terminal event
// arrives or the client disconnects.
func StreamGraphEventsHandler(c echo.Context) error {
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

	state, err := record.State()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	writeEvent := func(event pipeline.Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Response().Flush()
		return nil
	}

	snapshot := pipeline.Event{
		Type:     pipeline.EventObservation,
		Message:  "Current status: " + record.Status,
		Terminal: state.Terminal(),
	}
	if state.Phase == store.PhaseFailed {
		snapshot.Type = pipeline.EventError
	}
	if err := writeEvent(snapshot); err != nil {
		return err
	}
	if state.Terminal() {
		return nil
	}

	// Dedicated channel per stream, consuming cannot share the publish
	// channel.
	ch, err := app.QueueConn.Channel()
	if err != nil {
		logger.Error("Failed to open stream channel", "uuid", id, "err", err)
		return nil
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Error("Failed to declare stream queue", "uuid", id, "err", err)
		return nil
	}
	routingKey := "graph.events." + id.String()
	if err := ch.QueueBind(q.Name, routingKey, queue.EventExchange, false, nil); err != nil {
		logger.Error("Failed to bind stream queue", "uuid", id, "err", err)
		return nil
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		logger.Error("Failed to consume stream queue", "uuid", id, "err", err)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			var event pipeline.Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				logger.Warn("Dropping malformed event", "uuid", id, "err", err)
				continue
			}
			if err := writeEvent(event); err != nil {
				return nil
			}
			if event.Terminal {
				return nil
			}
		}
	}
}
