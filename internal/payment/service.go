package payment

import (
	"context"
	"fmt"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/rs/zerolog/log"
)

type Service struct {
	store     db.Store
	publisher event.Publisher

	Now func() time.Time
}

func NewService(store db.Store, publisher event.Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		Now:       time.Now,
	}
}

// Confirm marks the payment successful and moves a pending order to confirmed.
// A payment that is already successful is returned as is and announced only once.
func (s *Service) Confirm(ctx context.Context, reference string, raw []byte) (db.Payment, error) {
	now := s.Now()
	var confirmed bool
	var payment db.Payment

	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		var err error
		payment, err = q.GetPaymentByReferenceForUpdate(ctx, reference)
		if err != nil {
			return fmt.Errorf("failed to get payment %s: %w", reference, err)
		}
		if payment.Status == db.PaymentStatusSuccess {
			return nil
		}

		payment, err = q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
			ID:         payment.ID,
			Status:     db.PaymentStatusSuccess,
			Raw:        raw,
			ResolvedAt: &now,
		})
		if err != nil {
			return fmt.Errorf("failed to update payment %s: %w", reference, err)
		}

		order, err := q.GetOrderForUpdate(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("failed to get order %d: %w", payment.OrderID, err)
		}
		if order.Status == db.OrderStatusPending {
			if _, err := q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: order.ID, Status: db.OrderStatusConfirmed}); err != nil {
				return fmt.Errorf("failed to confirm order %d: %w", order.ID, err)
			}
		}

		confirmed = true
		return nil
	})
	if err != nil {
		return db.Payment{}, err
	}

	if confirmed {
		log.Info().Str("reference", reference).Int64("order_id", payment.OrderID).Msg("payment confirmed")
		s.publisher.Publish(ctx, event.New(event.OrderTopic(payment.OrderID), event.EventTypePaymentConfirmed, event.PaymentConfirmed{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Reference: payment.Reference,
			Amount:    payment.Amount,
		}))
	}
	return payment, nil
}

// Fail records a failed payment. Only pending payments change.
func (s *Service) Fail(ctx context.Context, reference string, raw []byte) (db.Payment, error) {
	return s.close(ctx, reference, db.PaymentStatusFailed, raw)
}

// Expire gives up on a payment the provider never resolved. Only pending payments change.
func (s *Service) Expire(ctx context.Context, reference string, raw []byte) (db.Payment, error) {
	return s.close(ctx, reference, db.PaymentStatusExpired, raw)
}

// Resolve applies a provider status. It reports false when the payment is still pending.
func (s *Service) Resolve(ctx context.Context, reference string, result StatusResult) (db.Payment, bool, error) {
	var payment db.Payment
	var err error

	switch result.Status {
	case db.PaymentStatusSuccess:
		payment, err = s.Confirm(ctx, reference, result.Raw)
	case db.PaymentStatusFailed, db.PaymentStatusExpired:
		payment, err = s.close(ctx, reference, result.Status, result.Raw)
	default:
		return db.Payment{}, false, nil
	}
	return payment, err == nil, err
}

func (s *Service) close(ctx context.Context, reference string, status db.PaymentStatus, raw []byte) (db.Payment, error) {
	now := s.Now()
	var payment db.Payment

	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		var err error
		payment, err = q.GetPaymentByReferenceForUpdate(ctx, reference)
		if err != nil {
			return fmt.Errorf("failed to get payment %s: %w", reference, err)
		}
		if payment.Status != db.PaymentStatusPending {
			return nil
		}

		payment, err = q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{
			ID:         payment.ID,
			Status:     status,
			Raw:        raw,
			ResolvedAt: &now,
		})
		if err != nil {
			return fmt.Errorf("failed to update payment %s: %w", reference, err)
		}
		return nil
	})
	if err != nil {
		return db.Payment{}, err
	}

	log.Info().Str("reference", reference).Str("status", string(payment.Status)).Msg("payment closed")
	return payment, nil
}
