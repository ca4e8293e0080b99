// Package payment resolves payments reported by the provider and announces confirmed ones.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"resty.dev/v3"
)

var ErrProviderUnavailable = errors.New("payment provider unavailable")

// StatusResult is what the provider reports for one payment. Raw is kept for audit.
type StatusResult struct {
	Status db.PaymentStatus
	Raw    json.RawMessage
}

// StatusProvider re-checks a payment with the provider.
type StatusProvider interface {
	CheckStatus(ctx context.Context, reference string) (StatusResult, error)
}

type jekoPaymentRequest struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"paymentMethod"`
	ExecutedAt    string `json:"executedAt"`
}

type jekoError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JekoClient talks to the Jeko partner API.
type JekoClient struct {
	client *resty.Client
}

func NewJekoClient(baseURL, apiKey, apiKeyID string) *JekoClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("X-API-KEY", apiKey).
		SetHeader("X-API-KEY-ID", apiKeyID).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2)

	return &JekoClient{client: client}
}

func (c *JekoClient) CheckStatus(ctx context.Context, reference string) (StatusResult, error) {
	var result jekoPaymentRequest
	var apiErr jekoError

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("reference", reference).
		SetResult(&result).
		SetError(&apiErr).
		Get("/partner_api/payment_requests/{reference}")
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return StatusResult{}, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode(), apiErr.Message)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return StatusResult{}, fmt.Errorf("failed to encode provider response: %w", err)
	}
	return StatusResult{Status: MapJekoStatus(result.Status), Raw: raw}, nil
}

func (c *JekoClient) Close() error {
	return c.client.Close()
}

// MapJekoStatus translates a Jeko status string. Unknown values stay pending.
func MapJekoStatus(status string) db.PaymentStatus {
	switch status {
	case "success", "completed":
		return db.PaymentStatusSuccess
	case "error", "failed", "cancelled":
		return db.PaymentStatusFailed
	case "expired":
		return db.PaymentStatusExpired
	default:
		return db.PaymentStatusPending
	}
}
