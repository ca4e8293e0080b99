package commission

import (
	"context"
	"fmt"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/rs/zerolog/log"
)

// PaymentConfirmedHandler is the safety net for orders paid after they were delivered.
// Delivery completion stays the primary trigger; both end up in CalculateAndDistribute.
func PaymentConfirmedHandler(store db.Querier, engine *Engine) event.Handler {
	return func(ctx context.Context, e event.Event) error {
		if e.Type != event.EventTypePaymentConfirmed {
			return nil
		}
		payload, ok := e.Data.(event.PaymentConfirmed)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", e.Data, e.Type)
		}

		order, err := store.GetOrder(ctx, payload.OrderID)
		if err != nil {
			return fmt.Errorf("failed to get order %d: %w", payload.OrderID, err)
		}
		if order.Status != db.OrderStatusDelivered {
			log.Debug().Int64("order_id", order.ID).Str("status", string(order.Status)).
				Msg("payment confirmed before delivery, commission deferred to delivery")
			return nil
		}

		_, err = engine.CalculateAndDistribute(ctx, order.ID)
		return err
	}
}
