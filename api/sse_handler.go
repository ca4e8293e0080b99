package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmago/dispatch/internal/event"
)

// streamDeliveryEvents streams the events of a delivery over Server-Sent Events.
// Clients receive status, assignment and waiting fee updates.
func (server *Server) streamDeliveryEvents(c *gin.Context) {
	deliveryID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if _, err := server.dbStore.GetDelivery(c, deliveryID); err != nil {
		abortWithError(c, err)
		return
	}

	topic := event.DeliveryTopic(deliveryID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	clientChan := make(chan event.Event, 16)
	server.eventSender.Register(topic, clientChan)
	defer server.eventSender.Unregister(topic, clientChan)

	for {
		select {
		case e := <-clientChan:
			data, _ := json.Marshal(e.Data)
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", e.Type, data)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
