package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/geo"
)

type updateCourierLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// updateCourierLocation records the courier's current position.
// Couriers whose last report is older than the freshness window are not offered deliveries.
func (server *Server) updateCourierLocation(c *gin.Context) {
	courierID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	var req updateCourierLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if err := geo.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		abortWithError(c, err)
		return
	}

	courier, err := server.dbStore.UpdateCourierLocation(c, db.UpdateCourierLocationParams{
		ID:         courierID,
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		ReportedAt: time.Now(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, courier)
}
