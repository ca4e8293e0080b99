package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pharmago/dispatch/internal/commission"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/delivery"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/geo"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/wallet"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type FailedValidationResponse struct {
	Message         string            `json:"message"`
	FieldViolations []*FieldViolation `json:"field_violations"`
}

type FieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func fieldViolation(field string, err error) *FieldViolation {
	return &FieldViolation{
		Field:       field,
		Description: err.Error(),
	}
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}

func failedValidationError(violations []*FieldViolation) *FailedValidationResponse {
	return &FailedValidationResponse{
		Message:         "Invalid request parameters",
		FieldViolations: violations,
	}
}

// statusFromError maps domain errors to HTTP status codes. Anything unknown is a 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, db.ErrRecordNotFound),
		errors.Is(err, commission.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, delivery.ErrNotAssignedCourier):
		return http.StatusForbidden
	case errors.Is(err, dispatch.ErrAlreadyAssigned),
		errors.Is(err, dispatch.ErrOrderClosed),
		errors.Is(err, dispatch.ErrNotReassignable),
		errors.Is(err, dispatch.ErrCourierUnavailable),
		errors.Is(err, delivery.ErrInvalidTransition),
		errors.Is(err, delivery.ErrOrderNotReady),
		errors.Is(err, wallet.ErrDuplicateReference),
		errors.Is(err, commission.ErrOrderNotDelivered):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrMissingCoordinates),
		errors.Is(err, delivery.ErrNotWaiting),
		errors.Is(err, geo.ErrInvalidCoordinates),
		errors.Is(err, settings.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), errorResponse(err))
}
