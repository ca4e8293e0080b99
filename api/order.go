package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/worker"
	"github.com/rs/zerolog/log"
)

// markOrderReady marks an order ready for pickup.
// Opens a pending delivery for the order and queues automatic courier assignment.
func (server *Server) markOrderReady(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	delivery, err := server.deliveryService.MarkReady(c, orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// The scheduler's batch assigner retries the order if this enqueue is lost.
	err = server.taskDistributor.DistributeTaskAutoAssignDelivery(c, &worker.PayloadAutoAssignDelivery{
		OrderID: orderID,
	}, asynq.MaxRetry(3), asynq.Queue(worker.QueueCritical))
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("failed to enqueue auto-assign task")
	}

	c.JSON(http.StatusOK, newDeliveryResponse(delivery, server.config.Currency))
}

// assignOrder assigns the best available courier to an order.
func (server *Server) assignOrder(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	delivery, err := server.dispatcher.AssignOrAlert(c, orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignmentResponse{Assigned: delivery != nil, Delivery: delivery})
}

// assignOrderToCourier assigns a specific courier to an order.
// Manual assignment by an operator. The search radius is not applied.
func (server *Server) assignOrderToCourier(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	courierID, err := parseIDParam(c, "courier_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	delivery, err := server.dispatcher.AssignSpecificCourier(c, orderID, courierID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if delivery == nil {
		abortWithError(c, dispatch.ErrCourierUnavailable)
		return
	}

	c.JSON(http.StatusOK, assignmentResponse{Assigned: true, Delivery: delivery})
}

// getOrderCommission returns the commission of an order with its lines.
func (server *Server) getOrderCommission(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	result, err := server.commissionEngine.Get(c, orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCommissionResponse(result, server.config.Currency))
}

// distributeOrderCommission settles the commission of a delivered order.
// Returns 201 when this call created the commission, 200 when it already existed and 409 before delivery.
func (server *Server) distributeOrderCommission(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	result, err := server.commissionEngine.CalculateAndDistribute(c, orderID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, newCommissionResponse(result, server.config.Currency))
}
