package api

import (
	"net/http"
	"time"

	"huddleup/meetup-app/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth happens before the upgrade; origins are not restricted
	// beyond that.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

// ChangeFeedHandler streams typed change events for one entity over a
// websocket. Clients reconcile by re-fetching the named entity; the
// event tells them which one and what happened.
type ChangeFeedHandler struct {
	subscriber realtime.Subscriber
}

func NewChangeFeedHandler(subscriber realtime.Subscriber) *ChangeFeedHandler {
	return &ChangeFeedHandler{subscriber: subscriber}
}

// Subscribe upgrades the connection and forwards matching change events
// as JSON until either side goes away.
func (h *ChangeFeedHandler) Subscribe(c *gin.Context) {
	entity := realtime.EntityType(c.Query("entity"))
	id := c.Query("id")
	if !realtime.ValidEntity(entity) || id == "" {
		abortWithError(c, http.StatusBadRequest, "entity and id query parameters are required")
		return
	}

	events, cancel, err := h.subscriber.Subscribe(c.Request.Context(), entity, id)
	if err != nil {
		abortWithError(c, http.StatusServiceUnavailable, "change feed unavailable")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	// Drain the read side so we notice the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
