// Package commission splits a completed order between the platform, the pharmacy and
// the courier, and credits their wallets.
package commission

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/pharmago/dispatch/internal/wallet"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotDelivered = errors.New("order is not delivered")
)

// Result is the commission of an order. Created is false when it already existed.
type Result struct {
	Commission db.Commission       `json:"commission"`
	Lines      []db.CommissionLine `json:"lines"`
	Created    bool                `json:"created"`

	orderReference string
}

type Engine struct {
	store     db.Store
	settings  settings.Provider
	ledger    *wallet.Ledger
	notifier  notification.Notifier
	publisher event.Publisher
	currency  string
}

func NewEngine(
	store db.Store,
	settingsProvider settings.Provider,
	ledger *wallet.Ledger,
	notifier notification.Notifier,
	publisher event.Publisher,
	currency string,
) *Engine {
	return &Engine{
		store:     store,
		settings:  settingsProvider,
		ledger:    ledger,
		notifier:  notifier,
		publisher: publisher,
		currency:  currency,
	}
}

// Reference is the ledger reference of every wallet credit made for a commission.
func Reference(commissionID int64) string {
	return fmt.Sprintf("COMMISSION-%d", commissionID)
}

// CalculateAndDistribute creates the order's commission and credits every share, all in one
// transaction. It is safe to call any number of times, concurrently included: later calls
// return the commission created by the first.
func (e *Engine) CalculateAndDistribute(ctx context.Context, orderID int64) (Result, error) {
	tunables, err := e.settings.Tunables(ctx)
	if err != nil {
		return Result{}, err
	}

	result, err := e.distribute(ctx, orderID, tunables)
	if db.IsUniqueViolation(err, db.UniqueCommissionOrderConstraint) {
		log.Warn().Int64("order_id", orderID).Msg("commission created concurrently, loading existing one")
		result, err = e.distribute(ctx, orderID, tunables)
	}
	if err != nil {
		return Result{}, err
	}

	if result.Created {
		e.afterDistribution(ctx, result)
	}
	return result, nil
}

// Get returns the commission of an order with its lines.
func (e *Engine) Get(ctx context.Context, orderID int64) (Result, error) {
	commission, err := e.store.GetCommissionByOrderID(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	lines, err := e.store.ListCommissionLines(ctx, commission.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list commission lines: %w", err)
	}
	return Result{Commission: commission, Lines: lines}, nil
}

func (e *Engine) distribute(ctx context.Context, orderID int64, tunables settings.Tunables) (Result, error) {
	var result Result

	err := e.store.ExecTx(ctx, func(q db.Querier) error {
		// 1. Lock the order so concurrent triggers queue up behind each other
		order, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, db.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
			}
			return fmt.Errorf("failed to get order %d: %w", orderID, err)
		}

		// 2. An existing commission is returned unchanged
		existing, err := q.GetCommissionByOrderID(ctx, orderID)
		if err == nil {
			lines, err := q.ListCommissionLines(ctx, existing.ID)
			if err != nil {
				return fmt.Errorf("failed to list commission lines: %w", err)
			}
			result = Result{Commission: existing, Lines: lines}
			return nil
		}
		if !errors.Is(err, db.ErrRecordNotFound) {
			return fmt.Errorf("failed to get commission of order %d: %w", orderID, err)
		}
		if order.Status != db.OrderStatusDelivered {
			return fmt.Errorf("%w: order %d is %s", ErrOrderNotDelivered, orderID, order.Status)
		}

		// 3. Work out the shares
		pharmacy, err := q.GetPharmacy(ctx, order.PharmacyID)
		if err != nil {
			return fmt.Errorf("failed to get pharmacy %d: %w", order.PharmacyID, err)
		}
		var courierID *int64
		delivery, err := q.GetDeliveryByOrderID(ctx, orderID)
		switch {
		case err == nil:
			courierID = delivery.CourierID
		case !errors.Is(err, db.ErrRecordNotFound):
			return fmt.Errorf("failed to get delivery of order %d: %w", orderID, err)
		}
		shares := Split(order.TotalAmount, ResolveRates(tunables, pharmacy), pharmacy.ID, courierID)

		// 4. Persist the commission and its lines
		commission, err := q.CreateCommission(ctx, db.CreateCommissionParams{
			OrderID:     orderID,
			TotalAmount: order.TotalAmount,
		})
		if err != nil {
			return err
		}
		result = Result{Commission: commission, Created: true, orderReference: order.Reference}

		for _, s := range shares {
			line, err := q.CreateCommissionLine(ctx, db.CreateCommissionLineParams{
				CommissionID: commission.ID,
				ActorType:    s.Actor.Type,
				ActorID:      s.Actor.OwnerID(),
				Rate:         s.Rate,
				Amount:       s.Amount,
			})
			if err != nil {
				return fmt.Errorf("failed to create commission line for %s: %w", s.Actor, err)
			}
			result.Lines = append(result.Lines, line)

			// 5. Credit the beneficiary
			if s.Amount <= 0 {
				continue
			}
			_, err = e.ledger.Credit(ctx, q, s.Actor, s.Amount, wallet.Entry{
				Reference:   Reference(commission.ID),
				Description: fmt.Sprintf("Commission for order %s", order.Reference),
				Metadata: map[string]interface{}{
					"order_id":      order.ID,
					"commission_id": commission.ID,
					"rate":          s.Rate,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to credit %s: %w", s.Actor, err)
			}
		}

		return nil
	})

	return result, err
}

func (e *Engine) afterDistribution(ctx context.Context, result Result) {
	c := result.Commission

	log.Info().
		Int64("commission_id", c.ID).
		Int64("order_id", c.OrderID).
		Int64("total_amount", c.TotalAmount).
		Int("lines", len(result.Lines)).
		Msg("commission distributed")

	e.publisher.Publish(ctx, event.New(event.OrderTopic(c.OrderID), event.EventTypeCommissionDistributed, event.CommissionDistributed{
		CommissionID: c.ID,
		OrderID:      c.OrderID,
		TotalAmount:  c.TotalAmount,
		Lines:        len(result.Lines),
	}))

	for _, line := range result.Lines {
		actor, err := line.Actor()
		if err != nil || actor.Type == db.ActorTypePlatform || line.Amount <= 0 {
			continue
		}

		recipient := notification.Pharmacy(actor.ID)
		if actor.Type == db.ActorTypeCourier {
			recipient = notification.Courier(actor.ID)
		}
		payload := map[string]string{
			"order_id":        strconv.FormatInt(c.OrderID, 10),
			"order_reference": result.orderReference,
			"commission_id":   strconv.FormatInt(c.ID, 10),
			"amount":          util.FormatMoney(line.Amount, e.currency),
		}
		if err := e.notifier.Notify(ctx, recipient, notification.TypeCommissionCredited, payload); err != nil {
			log.Error().Err(err).Str("recipient", recipient.String()).Msg("failed to notify commission credit")
		}
	}
}
