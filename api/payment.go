package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/payment"
	"github.com/rs/zerolog/log"
)

const webhookSignatureHeader = "X-Jeko-Signature"

// handlePaymentWebhook records a payment status pushed by the provider.
// The body must be signed with HMAC-SHA256 under the shared webhook secret.
func (server *Server) handlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	if !payment.VerifyWebhookSignature(server.config.JekoWebhookSecret, body, c.GetHeader(webhookSignatureHeader)) {
		log.Warn().Str("client_ip", c.ClientIP()).Msg("payment webhook rejected")
		c.JSON(http.StatusUnauthorized, errorResponse(ErrInvalidSignature))
		return
	}

	payload, err := payment.ParseWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	var recorded db.Payment
	switch status := payment.MapJekoStatus(payload.Status); status {
	case db.PaymentStatusSuccess:
		recorded, err = server.paymentService.Confirm(c, payload.Reference, payload.Raw)
	case db.PaymentStatusFailed:
		recorded, err = server.paymentService.Fail(c, payload.Reference, payload.Raw)
	case db.PaymentStatusExpired:
		recorded, err = server.paymentService.Expire(c, payload.Reference, payload.Raw)
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": status})
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("payment %s: %w", payload.Reference, err))
		return
	}

	c.JSON(http.StatusOK, recorded)
}
