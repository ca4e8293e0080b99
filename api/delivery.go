package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/geo"
	"github.com/pharmago/dispatch/internal/validator"
)

type courierActionRequest struct {
	CourierID int64 `json:"courier_id" binding:"required,gt=0"`
}

type rejectDeliveryRequest struct {
	CourierID int64  `json:"courier_id" binding:"required,gt=0"`
	Reason    string `json:"reason"`
}

type cancelDeliveryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type reassignDeliveryRequest struct {
	ExcludeCourierIDs []int64 `json:"exclude_courier_ids"`
}

// assignPendingDeliveries runs the batch assigner over every pending delivery.
func (server *Server) assignPendingDeliveries(c *gin.Context) {
	result, err := server.dispatcher.AssignAllPendingDeliveries(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// getDelivery returns a delivery with its formatted waiting fee.
func (server *Server) getDelivery(c *gin.Context) {
	deliveryID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	delivery, err := server.dbStore.GetDelivery(c, deliveryID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDeliveryResponse(delivery, server.config.Currency))
}

// reassignDelivery moves a delivery to another courier.
// Releases the current courier and looks for the best other candidate.
func (server *Server) reassignDelivery(c *gin.Context) {
	deliveryID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	var req reassignDeliveryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err))
			return
		}
	}

	courier, err := server.dispatcher.ReassignDelivery(c, deliveryID, req.ExcludeCourierIDs...)
	if err != nil {
		abortWithError(c, err)
		return
	}

	delivery, err := server.dbStore.GetDelivery(c, deliveryID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignmentResponse{Assigned: courier != nil, Delivery: &delivery, Courier: courier})
}

// runCourierAction binds the acting courier and runs one courier-driven transition.
func (server *Server) runCourierAction(
	c *gin.Context,
	transition func(ctx context.Context, deliveryID, courierID int64) (db.Delivery, error),
) {
	deliveryID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	var req courierActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	delivery, err := transition(c, deliveryID, req.CourierID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDeliveryResponse(delivery, server.config.Currency))
}

// acceptDelivery is called by the courier to accept an assigned delivery.
func (server *Server) acceptDelivery(c *gin.Context) {
	server.runCourierAction(c, server.deliveryService.Accept)
}

// pickUpDelivery marks the parcel as picked up at the pharmacy.
func (server *Server) pickUpDelivery(c *gin.Context) {
	server.runCourierAction(c, server.deliveryService.PickUp)
}

// startDeliveryTransit marks the courier as on the way to the customer.
func (server *Server) startDeliveryTransit(c *gin.Context) {
	server.runCourierAction(c, server.deliveryService.StartTransit)
}

// markDeliveryArrived starts the waiting timer at the customer's address.
func (server *Server) markDeliveryArrived(c *gin.Context) {
	server.runCourierAction(c, server.deliveryService.MarkArrived)
}

// completeDelivery marks the parcel as handed over.
// Settles the waiting fee, frees the courier and distributes the commission.
func (server *Server) completeDelivery(c *gin.Context) {
	server.runCourierAction(c, server.deliveryService.Deliver)
}

// rejectDelivery is called by the courier to refuse an assigned delivery.
// The delivery goes back to pending and is offered to the next best courier.
func (server *Server) rejectDelivery(c *gin.Context) {
	deliveryID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	var req rejectDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	next, err := server.deliveryService.Reject(c, deliveryID, req.CourierID, req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	delivery, err := server.dbStore.GetDelivery(c, deliveryID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignmentResponse{Assigned: next != nil, Delivery: &delivery, Courier: next})
}

// cancelDelivery cancels a delivery and its order.
func (server *Server) cancelDelivery(c *gin.Context) {
	deliveryID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	var req cancelDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	if err := validator.ValidateString(req.Reason, 3, 255); err != nil {
		c.JSON(http.StatusBadRequest, failedValidationError([]*FieldViolation{fieldViolation("reason", err)}))
		return
	}

	delivery, err := server.deliveryService.Cancel(c, deliveryID, req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDeliveryResponse(delivery, server.config.Currency))
}

// estimateDelivery estimates the travel time between two points.
func (server *Server) estimateDelivery(c *gin.Context) {
	var violations []*FieldViolation
	coords := make(map[string]float64, 4)
	for _, field := range []string{"from_lat", "from_lon", "to_lat", "to_lon"} {
		value, err := strconv.ParseFloat(c.Query(field), 64)
		if err != nil {
			violations = append(violations, fieldViolation(field, errors.New("must be a number")))
			continue
		}
		coords[field] = value
	}
	vehicle := db.VehicleType(c.DefaultQuery("vehicle", string(db.VehicleTypeMotorcycle)))
	if err := validator.ValidateVehicleType(vehicle); err != nil {
		violations = append(violations, fieldViolation("vehicle", err))
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, failedValidationError(violations))
		return
	}

	minutes, err := dispatch.EstimateDeliveryTime(coords["from_lat"], coords["from_lon"], coords["to_lat"], coords["to_lon"], vehicle)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, estimateResponse{
		DistanceKm: geo.DistanceKm(coords["from_lat"], coords["from_lon"], coords["to_lat"], coords["to_lon"]),
		Minutes:    minutes,
		Vehicle:    vehicle,
	})
}
