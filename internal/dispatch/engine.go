// Package dispatch picks couriers for deliveries and records the assignment.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pharmago/dispatch/internal/alert"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/geo"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/rs/zerolog/log"
)

type Engine struct {
	store     db.Store
	settings  settings.Provider
	notifier  notification.Notifier
	publisher event.Publisher
	alerter   alert.Alerter

	Now func() time.Time
}

func NewEngine(
	store db.Store,
	settingsProvider settings.Provider,
	notifier notification.Notifier,
	publisher event.Publisher,
	alerter alert.Alerter,
) *Engine {
	return &Engine{
		store:     store,
		settings:  settingsProvider,
		notifier:  notifier,
		publisher: publisher,
		alerter:   alerter,
		Now:       time.Now,
	}
}

// BatchResult counts the outcome of AssignAllPendingDeliveries.
type BatchResult struct {
	Assigned int `json:"assigned"`
	Failed   int `json:"failed"`
}

// assignment is what a committed assignment hands to the post-commit side effects.
type assignment struct {
	delivery db.Delivery
	order    db.Order
	pharmacy db.Pharmacy
	chosen   Candidate
	from     db.DeliveryStatus
}

// AssignCourier picks the best available courier near the pharmacy and assigns the
// order's delivery to it. It returns nil without touching any row when no courier qualifies.
func (e *Engine) AssignCourier(ctx context.Context, orderID int64) (*db.Delivery, error) {
	tunables, err := e.settings.Tunables(ctx)
	if err != nil {
		return nil, err
	}
	now := e.Now()
	pool := Pool{Freshness: tunables.LocationFreshness()}

	var result *assignment
	err = e.store.ExecTx(ctx, func(q db.Querier) error {
		// 1. Lock the order and load what the assignment needs
		order, pharmacy, current, err := loadForAssignment(ctx, q, orderID)
		if err != nil {
			return err
		}

		originLat, originLon, ok := geo.Point(pharmacy.Latitude, pharmacy.Longitude)
		if !ok {
			return fmt.Errorf("%w: pharmacy %d", ErrMissingCoordinates, pharmacy.ID)
		}

		// 2. Rank the candidates
		candidates, err := pool.AvailableWithinRadius(ctx, q, originLat, originLon, tunables.SearchRadiusKm, now)
		if err != nil {
			return err
		}
		ranked := Rank(candidates, tunables.SearchRadiusKm, tunables.LocationFreshness(), now)

		// 3. Claim the first courier that is still available
		chosen, ok, err := claimFirst(ctx, q, ranked)
		if err != nil || !ok {
			return err
		}

		// 4. Persist delivery and order state
		result, err = persistAssignment(ctx, q, order, pharmacy, current, chosen, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		log.Info().Int64("order_id", orderID).Float64("radius_km", tunables.SearchRadiusKm).
			Msg("no courier available within radius")
		return nil, nil
	}

	e.afterAssignment(ctx, result)
	return &result.delivery, nil
}

// AssignOrAlert runs AssignCourier and tells an operator when the order needs manual handling.
func (e *Engine) AssignOrAlert(ctx context.Context, orderID int64) (*db.Delivery, error) {
	delivery, err := e.AssignCourier(ctx, orderID)
	switch {
	case errors.Is(err, ErrMissingCoordinates):
		e.alert(ctx, "Manual assignment required",
			fmt.Sprintf("Order %d cannot be auto-assigned: the pharmacy has no coordinates.", orderID))
	case err == nil && delivery == nil:
		e.alert(ctx, "No courier available",
			fmt.Sprintf("Order %d has no available courier within the search radius.", orderID))
		e.publisher.Publish(ctx, event.New(event.OrderTopic(orderID), event.EventTypeDeliveryUnassignable, map[string]int64{
			"order_id": orderID,
		}))
	}
	return delivery, err
}

// AssignSpecificCourier assigns the order to courierID. It returns nil when that courier is not available.
func (e *Engine) AssignSpecificCourier(ctx context.Context, orderID, courierID int64) (*db.Delivery, error) {
	now := e.Now()

	var result *assignment
	err := e.store.ExecTx(ctx, func(q db.Querier) error {
		order, pharmacy, current, err := loadForAssignment(ctx, q, orderID)
		if err != nil {
			return err
		}

		courier, err := q.ClaimCourier(ctx, courierID)
		if err != nil {
			if errors.Is(err, db.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to claim courier %d: %w", courierID, err)
		}

		chosen := Candidate{Courier: courier}
		pLat, pLon, okP := geo.Point(pharmacy.Latitude, pharmacy.Longitude)
		cLat, cLon, okC := geo.Point(courier.Latitude, courier.Longitude)
		if okP && okC {
			chosen.DistanceKm = geo.DistanceKm(pLat, pLon, cLat, cLon)
		}

		result, err = persistAssignment(ctx, q, order, pharmacy, current, chosen, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		log.Info().Int64("order_id", orderID).Int64("courier_id", courierID).Msg("requested courier is not available")
		return nil, nil
	}

	e.afterAssignment(ctx, result)
	return &result.delivery, nil
}

// ReassignDelivery releases the current courier, if any, and assigns the next best one,
// skipping the previous courier and every id in exclude. It returns nil when nobody
// qualifies; the delivery then stays pending and unassigned.
func (e *Engine) ReassignDelivery(ctx context.Context, deliveryID int64, exclude ...int64) (*db.Courier, error) {
	tunables, err := e.settings.Tunables(ctx)
	if err != nil {
		return nil, err
	}
	now := e.Now()
	pool := Pool{Freshness: tunables.LocationFreshness()}

	var result *assignment
	err = e.store.ExecTx(ctx, func(q db.Querier) error {
		delivery, err := q.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return fmt.Errorf("failed to get delivery %d: %w", deliveryID, err)
		}
		switch delivery.Status {
		case db.DeliveryStatusPending, db.DeliveryStatusAssigned, db.DeliveryStatusAccepted:
		case db.DeliveryStatusDelivered, db.DeliveryStatusCancelled:
			return fmt.Errorf("%w: delivery %d is %s", ErrOrderClosed, deliveryID, delivery.Status)
		default:
			return fmt.Errorf("%w: delivery %d is %s", ErrNotReassignable, deliveryID, delivery.Status)
		}

		order, err := q.GetOrderForUpdate(ctx, delivery.OrderID)
		if err != nil {
			return fmt.Errorf("failed to get order %d: %w", delivery.OrderID, err)
		}
		pharmacy, err := q.GetPharmacy(ctx, order.PharmacyID)
		if err != nil {
			return fmt.Errorf("failed to get pharmacy %d: %w", order.PharmacyID, err)
		}

		// 1. Release the previous courier and put the delivery back in the queue
		skip := append([]int64{}, exclude...)
		if delivery.CourierID != nil {
			previous := *delivery.CourierID
			skip = append(skip, previous)
			if _, err := q.ReleaseCourier(ctx, previous); err != nil {
				return fmt.Errorf("failed to release courier %d: %w", previous, err)
			}
		}
		delivery.Status = db.DeliveryStatusPending
		delivery.CourierID = nil
		delivery.AssignedAt = nil
		delivery.AcceptedAt = nil
		if delivery, err = q.UpdateDelivery(ctx, db.UpdateDeliveryParamsFrom(delivery)); err != nil {
			return fmt.Errorf("failed to reset delivery %d: %w", deliveryID, err)
		}
		if order.Status == db.OrderStatusAssigned {
			if order, err = q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: order.ID, Status: db.OrderStatusReady}); err != nil {
				return fmt.Errorf("failed to reset order %d: %w", delivery.OrderID, err)
			}
		}

		// 2. Pick the next courier
		originLat, originLon, ok := geo.Point(pharmacy.Latitude, pharmacy.Longitude)
		if !ok {
			log.Warn().Int64("delivery_id", deliveryID).Int64("pharmacy_id", pharmacy.ID).
				Msg("pharmacy has no coordinates, delivery left for manual assignment")
			return nil
		}
		candidates, err := pool.AvailableWithinRadius(ctx, q, originLat, originLon, tunables.SearchRadiusKm, now, skip...)
		if err != nil {
			return err
		}
		ranked := Rank(candidates, tunables.SearchRadiusKm, tunables.LocationFreshness(), now)
		chosen, ok, err := claimFirst(ctx, q, ranked)
		if err != nil || !ok {
			return err
		}

		result, err = persistAssignment(ctx, q, order, pharmacy, &delivery, chosen, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil {
		log.Info().Int64("delivery_id", deliveryID).Msg("no courier available for reassignment")
		e.alert(ctx, "Delivery left unassigned",
			fmt.Sprintf("Delivery %d went back to pending and no other courier is available.", deliveryID))
		return nil, nil
	}

	e.afterAssignment(ctx, result)
	courier := result.chosen.Courier
	return &courier, nil
}

// AssignAllPendingDeliveries tries every pending, unassigned delivery in its own transaction.
// One failure never stops the batch.
func (e *Engine) AssignAllPendingDeliveries(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	deliveries, err := e.store.ListPendingUnassignedDeliveries(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list pending deliveries: %w", err)
	}

	for _, d := range deliveries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		assigned, err := e.AssignCourier(ctx, d.OrderID)
		if err != nil {
			log.Error().Err(err).Int64("delivery_id", d.ID).Int64("order_id", d.OrderID).
				Msg("failed to assign pending delivery")
			result.Failed++
			continue
		}
		if assigned == nil {
			result.Failed++
			continue
		}
		result.Assigned++
	}

	log.Info().Int("assigned", result.Assigned).Int("failed", result.Failed).Msg("pending deliveries processed")
	return result, nil
}

func loadForAssignment(ctx context.Context, q db.Querier, orderID int64) (db.Order, db.Pharmacy, *db.Delivery, error) {
	order, err := q.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return db.Order{}, db.Pharmacy{}, nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	if order.Status.IsClosed() {
		return db.Order{}, db.Pharmacy{}, nil, fmt.Errorf("%w: order %d is %s", ErrOrderClosed, orderID, order.Status)
	}

	pharmacy, err := q.GetPharmacy(ctx, order.PharmacyID)
	if err != nil {
		return db.Order{}, db.Pharmacy{}, nil, fmt.Errorf("failed to get pharmacy %d: %w", order.PharmacyID, err)
	}

	var current *db.Delivery
	delivery, err := q.GetDeliveryByOrderID(ctx, orderID)
	switch {
	case err == nil:
		if delivery.CourierID != nil || delivery.Status != db.DeliveryStatusPending {
			return db.Order{}, db.Pharmacy{}, nil, fmt.Errorf("%w: delivery %d is %s", ErrAlreadyAssigned, delivery.ID, delivery.Status)
		}
		if _, err := q.GetDeliveryForUpdate(ctx, delivery.ID); err != nil {
			return db.Order{}, db.Pharmacy{}, nil, fmt.Errorf("failed to lock delivery %d: %w", delivery.ID, err)
		}
		current = &delivery
	case errors.Is(err, db.ErrRecordNotFound):
	default:
		return db.Order{}, db.Pharmacy{}, nil, fmt.Errorf("failed to get delivery of order %d: %w", orderID, err)
	}

	return order, pharmacy, current, nil
}

// claimFirst flips the best ranked courier that is still available to busy.
// A courier claimed by a concurrent assignment is skipped.
func claimFirst(ctx context.Context, q db.Querier, ranked []Candidate) (Candidate, bool, error) {
	for _, c := range ranked {
		courier, err := q.ClaimCourier(ctx, c.Courier.ID)
		if err != nil {
			if errors.Is(err, db.ErrRecordNotFound) {
				log.Debug().Int64("courier_id", c.Courier.ID).Msg("courier taken concurrently, trying next")
				continue
			}
			return Candidate{}, false, fmt.Errorf("failed to claim courier %d: %w", c.Courier.ID, err)
		}
		c.Courier = courier
		return c, true, nil
	}
	return Candidate{}, false, nil
}

func persistAssignment(
	ctx context.Context,
	q db.Querier,
	order db.Order,
	pharmacy db.Pharmacy,
	current *db.Delivery,
	chosen Candidate,
	now time.Time,
) (*assignment, error) {
	var delivery db.Delivery
	var err error

	if current == nil {
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
			return nil, fmt.Errorf("failed to create delivery for order %d: %w", order.ID, err)
		}
	} else {
		delivery = *current
	}

	from := delivery.Status
	courierID := chosen.Courier.ID
	delivery.Status = db.DeliveryStatusAssigned
	delivery.CourierID = &courierID
	delivery.AssignedAt = &now
	delivery, err = q.UpdateDelivery(ctx, db.UpdateDeliveryParamsFrom(delivery))
	if err != nil {
		return nil, fmt.Errorf("failed to assign delivery %d: %w", delivery.ID, err)
	}

	order, err = q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: order.ID, Status: db.OrderStatusAssigned})
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", order.ID, err)
	}

	return &assignment{
		delivery: delivery,
		order:    order,
		pharmacy: pharmacy,
		chosen:   chosen,
		from:     from,
	}, nil
}

// afterAssignment runs once per committed assignment. Failures here are logged only.
func (e *Engine) afterAssignment(ctx context.Context, a *assignment) {
	courierID := a.chosen.Courier.ID

	log.Info().
		Int64("delivery_id", a.delivery.ID).
		Int64("order_id", a.order.ID).
		Int64("courier_id", courierID).
		Float64("distance_km", a.chosen.DistanceKm).
		Float64("score", a.chosen.Score).
		Msg("courier assigned")

	payload := map[string]string{
		"delivery_id":     strconv.FormatInt(a.delivery.ID, 10),
		"order_id":        strconv.FormatInt(a.order.ID, 10),
		"order_reference": a.order.Reference,
		"tracking_code":   a.delivery.TrackingCode,
		"pharmacy_name":   a.pharmacy.Name,
		"distance_km":     strconv.FormatFloat(a.chosen.DistanceKm, 'f', 1, 64),
	}
	if err := e.notifier.Notify(ctx, notification.Courier(courierID), notification.TypeDeliveryAssigned, payload); err != nil {
		log.Error().Err(err).Int64("delivery_id", a.delivery.ID).Int64("courier_id", courierID).
			Msg("failed to notify assigned courier")
	}

	topic := event.DeliveryTopic(a.delivery.ID)
	e.publisher.Publish(ctx, event.New(topic, event.EventTypeCourierAssigned, event.CourierAssigned{
		DeliveryID: a.delivery.ID,
		OrderID:    a.order.ID,
		CourierID:  courierID,
		DistanceKm: a.chosen.DistanceKm,
		Score:      a.chosen.Score,
	}))
	e.publisher.Publish(ctx, event.New(topic, event.EventTypeDeliveryStatusChanged, event.DeliveryStatusChanged{
		DeliveryID: a.delivery.ID,
		OrderID:    a.order.ID,
		CourierID:  a.delivery.CourierID,
		From:       a.from,
		To:         a.delivery.Status,
	}))
}

func (e *Engine) alert(ctx context.Context, subject, message string) {
	if err := e.alerter.Alert(ctx, subject, message); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to alert operator")
	}
}
