// Package delivery drives a delivery through its lifecycle once a courier has been assigned.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pharmago/dispatch/internal/commission"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/rs/zerolog/log"
)

// Reassigner finds a new courier after a refusal.
type Reassigner interface {
	ReassignDelivery(ctx context.Context, deliveryID int64, exclude ...int64) (*db.Courier, error)
}

// CommissionEngine settles an order once it is delivered.
type CommissionEngine interface {
	CalculateAndDistribute(ctx context.Context, orderID int64) (commission.Result, error)
}

type Service struct {
	store      db.Store
	settings   settings.Provider
	reassigner Reassigner
	commission CommissionEngine
	notifier   notification.Notifier
	publisher  event.Publisher
	currency   string

	Now func() time.Time
}

func NewService(
	store db.Store,
	settingsProvider settings.Provider,
	reassigner Reassigner,
	commissionEngine CommissionEngine,
	notifier notification.Notifier,
	publisher event.Publisher,
	currency string,
) *Service {
	return &Service{
		store:      store,
		settings:   settingsProvider,
		reassigner: reassigner,
		commission: commissionEngine,
		notifier:   notifier,
		publisher:  publisher,
		currency:   currency,
		Now:        time.Now,
	}
}

// change is a committed transition waiting for its side effects.
type change struct {
	delivery db.Delivery
	order    db.Order
	from     db.DeliveryStatus
	reason   string
	released *int64
}

// MarkReady moves a paid or cash order to ready and opens its pending delivery.
// Calling it again for a ready order returns the existing delivery.
func (s *Service) MarkReady(ctx context.Context, orderID int64) (db.Delivery, error) {
	var delivery db.Delivery

	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		order, err := q.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order %d: %w", orderID, err)
		}

		switch order.Status {
		case db.OrderStatusPending, db.OrderStatusConfirmed:
			if _, err := q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: order.ID, Status: db.OrderStatusReady}); err != nil {
				return fmt.Errorf("failed to update order %d: %w", order.ID, err)
			}
		case db.OrderStatusReady:
		default:
			return fmt.Errorf("%w: order %d is %s", ErrOrderNotReady, order.ID, order.Status)
		}

		delivery, err = q.GetDeliveryByOrderID(ctx, order.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, db.ErrRecordNotFound) {
			return fmt.Errorf("failed to get delivery of order %d: %w", order.ID, err)
		}

		pharmacy, err := q.GetPharmacy(ctx, order.PharmacyID)
		if err != nil {
			return fmt.Errorf("failed to get pharmacy %d: %w", order.PharmacyID, err)
		}
		delivery, err = q.CreateDelivery(ctx, db.CreateDeliveryParams{
			OrderID:          order.ID,
			Status:           db.DeliveryStatusPending,
			TrackingCode:     util.GenerateTrackingCode(),
			PickupLatitude:   pharmacy.Latitude,
			PickupLongitude:  pharmacy.Longitude,
			DropoffLatitude:  order.DeliveryLatitude,
			DropoffLongitude: order.DeliveryLongitude,
		})
		if err != nil {
			return fmt.Errorf("failed to create delivery for order %d: %w", order.ID, err)
		}
		return nil
	})

	return delivery, err
}

// Accept records that the assigned courier takes the delivery.
func (s *Service) Accept(ctx context.Context, deliveryID, courierID int64) (db.Delivery, error) {
	now := s.Now()

	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, _ *db.Order) error {
		if err := checkCourier(*d, courierID); err != nil {
			return err
		}
		if err := checkTransition(*d, db.DeliveryStatusAccepted); err != nil {
			return err
		}
		d.Status = db.DeliveryStatusAccepted
		d.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return db.Delivery{}, err
	}

	s.publishStatusChanged(ctx, c)
	return c.delivery, nil
}

// Reject puts the delivery back to pending, frees the courier and dispatches it again
// without that courier. The returned courier is nil when nobody else is available.
func (s *Service) Reject(ctx context.Context, deliveryID, courierID int64, reason string) (*db.Courier, error) {
	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, o *db.Order) error {
		if err := checkCourier(*d, courierID); err != nil {
			return err
		}
		if err := checkTransition(*d, db.DeliveryStatusPending); err != nil {
			return err
		}

		if _, err := q.ReleaseCourier(ctx, courierID); err != nil {
			return fmt.Errorf("failed to release courier %d: %w", courierID, err)
		}
		d.Status = db.DeliveryStatusPending
		d.CourierID = nil
		d.AssignedAt = nil
		d.AcceptedAt = nil

		if o.Status == db.OrderStatusAssigned {
			o.Status = db.OrderStatusReady
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.reason = reason
	log.Info().Int64("delivery_id", deliveryID).Int64("courier_id", courierID).Str("reason", reason).
		Msg("courier refused delivery")
	s.publishStatusChanged(ctx, c)

	return s.reassigner.ReassignDelivery(ctx, deliveryID, courierID)
}

// PickUp records that the courier collected the parcel at the pharmacy.
func (s *Service) PickUp(ctx context.Context, deliveryID, courierID int64) (db.Delivery, error) {
	now := s.Now()

	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, o *db.Order) error {
		if err := checkCourier(*d, courierID); err != nil {
			return err
		}
		if err := checkTransition(*d, db.DeliveryStatusPickedUp); err != nil {
			return err
		}
		d.Status = db.DeliveryStatusPickedUp
		d.PickedUpAt = &now
		o.Status = db.OrderStatusInDelivery
		return nil
	})
	if err != nil {
		return db.Delivery{}, err
	}

	s.publishStatusChanged(ctx, c)
	return c.delivery, nil
}

func (s *Service) StartTransit(ctx context.Context, deliveryID, courierID int64) (db.Delivery, error) {
	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, _ *db.Order) error {
		if err := checkCourier(*d, courierID); err != nil {
			return err
		}
		if err := checkTransition(*d, db.DeliveryStatusInTransit); err != nil {
			return err
		}
		d.Status = db.DeliveryStatusInTransit
		return nil
	})
	if err != nil {
		return db.Delivery{}, err
	}

	s.publishStatusChanged(ctx, c)
	return c.delivery, nil
}

// MarkArrived starts the waiting timer. Repeated calls keep the first start time.
func (s *Service) MarkArrived(ctx context.Context, deliveryID, courierID int64) (db.Delivery, error) {
	now := s.Now()
	started := false

	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, _ *db.Order) error {
		if err := checkCourier(*d, courierID); err != nil {
			return err
		}
		if d.Status != db.DeliveryStatusInTransit {
			return fmt.Errorf("%w: delivery %d is %s, not in transit", ErrInvalidTransition, d.ID, d.Status)
		}
		if d.WaitingStartedAt == nil {
			d.WaitingStartedAt = &now
			started = true
		}
		return nil
	})
	if err != nil {
		return db.Delivery{}, err
	}

	if started {
		log.Info().Int64("delivery_id", deliveryID).Time("waiting_started_at", now).Msg("courier arrived, waiting timer started")
	}
	return c.delivery, nil
}

// Deliver completes the delivery, settles the waiting fee, frees the courier and
// triggers the commission for the order.
func (s *Service) Deliver(ctx context.Context, deliveryID, courierID int64) (db.Delivery, error) {
	tunables, err := s.settings.Tunables(ctx)
	if err != nil {
		return db.Delivery{}, err
	}
	now := s.Now()

	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, o *db.Order) error {
		if err := checkCourier(*d, courierID); err != nil {
			return err
		}
		if err := checkTransition(*d, db.DeliveryStatusDelivered); err != nil {
			return err
		}

		if d.IsWaiting() {
			d.WaitingFee = max(d.WaitingFee, WaitingFee(*d.WaitingStartedAt, now, tunables))
			d.WaitingEndedAt = &now
		}
		d.Status = db.DeliveryStatusDelivered
		d.DeliveredAt = &now

		if err := q.IncrementCourierDeliveries(ctx, courierID); err != nil {
			return fmt.Errorf("failed to count delivery for courier %d: %w", courierID, err)
		}
		o.Status = db.OrderStatusDelivered
		return nil
	})
	if err != nil {
		return db.Delivery{}, err
	}

	s.publishStatusChanged(ctx, c)
	s.notify(ctx, notification.Customer(c.order.CustomerID), notification.TypeDeliveryDelivered, s.payload(c))

	if _, err := s.commission.CalculateAndDistribute(ctx, c.order.ID); err != nil {
		log.Error().Err(err).Int64("order_id", c.order.ID).Msg("failed to distribute commission after delivery")
	}

	return c.delivery, nil
}

// Cancel stops a non-terminal delivery and cancels its order.
func (s *Service) Cancel(ctx context.Context, deliveryID int64, reason string) (db.Delivery, error) {
	now := s.Now()

	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, o *db.Order) error {
		if err := checkTransition(*d, db.DeliveryStatusCancelled); err != nil {
			return err
		}
		if d.IsWaiting() {
			d.WaitingEndedAt = &now
		}
		d.Status = db.DeliveryStatusCancelled
		d.CancelledAt = &now
		d.CancellationReason = &reason
		o.Status = db.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return db.Delivery{}, err
	}

	c.reason = reason
	s.publishStatusChanged(ctx, c)

	payload := s.payload(c)
	s.notify(ctx, notification.Customer(c.order.CustomerID), notification.TypeDeliveryCancelled, payload)
	if c.released != nil {
		s.notify(ctx, notification.Courier(*c.released), notification.TypeDeliveryCancelled, payload)
	}
	return c.delivery, nil
}

// TimeoutCancellation is the outcome of a waiting timeout, for the caller to notify.
type TimeoutCancellation struct {
	Delivery  db.Delivery
	Order     db.Order
	CourierID *int64
}

// CancelForWaitingTimeout cancels a delivery whose waiting timer has run out. It re-checks
// every condition under lock and reports false when the delivery no longer qualifies.
func (s *Service) CancelForWaitingTimeout(
	ctx context.Context,
	deliveryID int64,
	now time.Time,
	tunables settings.Tunables,
) (TimeoutCancellation, bool, error) {
	var skipped bool

	c, err := s.transition(ctx, deliveryID, func(q db.Querier, d *db.Delivery, o *db.Order) error {
		if d.Status != db.DeliveryStatusInTransit || !d.IsWaiting() || d.AutoCancelledAt != nil ||
			!TimedOut(*d.WaitingStartedAt, now, tunables) {
			skipped = true
			return nil
		}

		reason := fmt.Sprintf("Customer absent: no handover within %d minutes of the courier's arrival", tunables.WaitingTimeoutMinutes)
		d.Status = db.DeliveryStatusCancelled
		d.WaitingEndedAt = &now
		d.WaitingFee = max(d.WaitingFee, WaitingFee(*d.WaitingStartedAt, now, tunables))
		d.AutoCancelledAt = &now
		d.CancelledAt = &now
		d.CancellationReason = &reason
		o.Status = db.OrderStatusCancelled
		return nil
	})
	if err != nil || skipped {
		return TimeoutCancellation{}, false, err
	}

	c.reason = *c.delivery.CancellationReason
	s.publishStatusChanged(ctx, c)

	return TimeoutCancellation{Delivery: c.delivery, Order: c.order, CourierID: c.released}, true, nil
}

// RefreshWaitingFee raises the stored fee to what the running timer is worth now.
// The stored fee never decreases.
func (s *Service) RefreshWaitingFee(ctx context.Context, deliveryID int64, now time.Time, tunables settings.Tunables) (int64, error) {
	delivery, err := s.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return 0, fmt.Errorf("failed to get delivery %d: %w", deliveryID, err)
	}
	if !delivery.IsWaiting() {
		return delivery.WaitingFee, fmt.Errorf("%w: delivery %d", ErrNotWaiting, deliveryID)
	}

	fee := WaitingFee(*delivery.WaitingStartedAt, now, tunables)
	raised, err := s.store.RaiseWaitingFee(ctx, db.RaiseWaitingFeeParams{ID: deliveryID, Fee: fee})
	if err != nil {
		return 0, fmt.Errorf("failed to raise waiting fee of delivery %d: %w", deliveryID, err)
	}
	if raised == 0 {
		return max(fee, delivery.WaitingFee), nil
	}

	s.publisher.Publish(ctx, event.New(event.DeliveryTopic(deliveryID), event.EventTypeWaitingFeeUpdated, event.WaitingFeeUpdated{
		DeliveryID: deliveryID,
		WaitingFee: fee,
	}))
	return fee, nil
}

// transition locks the delivery and its order, lets apply mutate them, and persists both.
// A delivery that ends up without its courier has that courier released in the same transaction.
func (s *Service) transition(
	ctx context.Context,
	deliveryID int64,
	apply func(q db.Querier, d *db.Delivery, o *db.Order) error,
) (change, error) {
	var c change

	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		delivery, err := q.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return fmt.Errorf("failed to get delivery %d: %w", deliveryID, err)
		}
		order, err := q.GetOrderForUpdate(ctx, delivery.OrderID)
		if err != nil {
			return fmt.Errorf("failed to get order %d: %w", delivery.OrderID, err)
		}

		c.from = delivery.Status
		fromOrder := order.Status
		courierID := delivery.CourierID

		updated, updatedOrder := delivery, order
		if err := apply(q, &updated, &updatedOrder); err != nil {
			return err
		}
		if updated == delivery {
			c.delivery, c.order = delivery, order
			return nil
		}

		if updated.Status.IsTerminal() && courierID != nil {
			if _, err := q.ReleaseCourier(ctx, *courierID); err != nil {
				return fmt.Errorf("failed to release courier %d: %w", *courierID, err)
			}
			c.released = courierID
		}

		if c.delivery, err = q.UpdateDelivery(ctx, db.UpdateDeliveryParamsFrom(updated)); err != nil {
			return fmt.Errorf("failed to update delivery %d: %w", deliveryID, err)
		}

		c.order = order
		if updatedOrder.Status != fromOrder {
			c.order, err = q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: order.ID, Status: updatedOrder.Status})
			if err != nil {
				return fmt.Errorf("failed to update order %d: %w", order.ID, err)
			}
		}
		return nil
	})

	return c, err
}

func (s *Service) publishStatusChanged(ctx context.Context, c change) {
	if c.from == c.delivery.Status {
		return
	}

	log.Info().
		Int64("delivery_id", c.delivery.ID).
		Str("from", string(c.from)).
		Str("to", string(c.delivery.Status)).
		Msg("delivery status changed")

	s.publisher.Publish(ctx, event.New(event.DeliveryTopic(c.delivery.ID), event.EventTypeDeliveryStatusChanged, event.DeliveryStatusChanged{
		DeliveryID: c.delivery.ID,
		OrderID:    c.order.ID,
		CourierID:  c.delivery.CourierID,
		From:       c.from,
		To:         c.delivery.Status,
		Reason:     c.reason,
	}))
}

func (s *Service) payload(c change) map[string]string {
	payload := map[string]string{
		"delivery_id":     strconv.FormatInt(c.delivery.ID, 10),
		"order_id":        strconv.FormatInt(c.order.ID, 10),
		"order_reference": c.order.Reference,
		"tracking_code":   c.delivery.TrackingCode,
		"waiting_fee":     util.FormatMoney(c.delivery.WaitingFee, s.currency),
	}
	if c.delivery.CancellationReason != nil {
		payload["reason"] = *c.delivery.CancellationReason
	}
	return payload
}

// NotifyTimeout tells the customer, the courier and the pharmacy about a waiting timeout.
func (s *Service) NotifyTimeout(ctx context.Context, tc TimeoutCancellation) {
	payload := s.payload(change{delivery: tc.Delivery, order: tc.Order})

	s.notify(ctx, notification.Customer(tc.Order.CustomerID), notification.TypeDeliveryAutoCancelled, payload)
	if tc.CourierID != nil {
		s.notify(ctx, notification.Courier(*tc.CourierID), notification.TypeDeliveryAutoCancelled, payload)
	}
	s.notify(ctx, notification.Pharmacy(tc.Order.PharmacyID), notification.TypeDeliveryAutoCancelled, payload)
}

func (s *Service) notify(ctx context.Context, recipient notification.Recipient, eventType string, payload map[string]string) {
	if err := s.notifier.Notify(ctx, recipient, eventType, payload); err != nil {
		log.Error().Err(err).Str("recipient", recipient.String()).Str("type", eventType).Msg("failed to send notification")
	}
}
