// Package testutil seeds the in-memory store and records side effects for engine tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/stretchr/testify/require"
)

// Abidjan Plateau, used as the default pharmacy location.
const (
	OriginLat = 5.3200
	OriginLon = -4.0200
)

// Offset returns a point roughly km kilometres north of the origin.
func Offset(km float64) (float64, float64) {
	return OriginLat + km/111.195, OriginLon
}

func CreatePharmacy(t *testing.T, q db.Querier, override *float64) db.Pharmacy {
	t.Helper()
	pharmacy, err := q.CreatePharmacy(context.Background(), db.CreatePharmacyParams{
		Name:                   "Pharmacie du Plateau",
		Latitude:               util.Float64Pointer(OriginLat),
		Longitude:              util.Float64Pointer(OriginLon),
		CommissionRatePharmacy: override,
	})
	require.NoError(t, err)
	return pharmacy
}

func CreatePharmacyWithoutCoordinates(t *testing.T, q db.Querier) db.Pharmacy {
	t.Helper()
	pharmacy, err := q.CreatePharmacy(context.Background(), db.CreatePharmacyParams{Name: "Pharmacie Sans Adresse"})
	require.NoError(t, err)
	return pharmacy
}

func CreateOrder(t *testing.T, q db.Querier, pharmacyID int64, status db.OrderStatus, total int64) db.Order {
	t.Helper()
	lat, lon := Offset(3)
	order, err := q.CreateOrder(context.Background(), db.CreateOrderParams{
		Reference:         util.GenerateOrderReference(),
		PharmacyID:        pharmacyID,
		CustomerID:        501,
		Status:            status,
		Subtotal:          total - 1000,
		DeliveryFee:       1000,
		TotalAmount:       total,
		DeliveryLatitude:  util.Float64Pointer(lat),
		DeliveryLongitude: util.Float64Pointer(lon),
		PaymentMode:       "mobile_money",
	})
	require.NoError(t, err)
	return order
}

var nextUserID atomic.Int64

// CourierParams describes a courier to seed. Zero values get sensible defaults.
type CourierParams struct {
	DistanceKm float64
	Rating     float64
	Completed  int64
	LocatedAgo time.Duration
	Status     db.CourierStatus
	Vehicle    db.VehicleType
}

func CreateCourier(t *testing.T, q db.Querier, now time.Time, params CourierParams) db.Courier {
	t.Helper()
	if params.Status == "" {
		params.Status = db.CourierStatusAvailable
	}
	if params.Vehicle == "" {
		params.Vehicle = db.VehicleTypeMotorcycle
	}
	lat, lon := Offset(params.DistanceKm)
	located := now.Add(-params.LocatedAgo)
	courier, err := q.CreateCourier(context.Background(), db.CreateCourierParams{
		UserID:              nextUserID.Add(1),
		Name:                fmt.Sprintf("Courier %.1fkm", params.DistanceKm),
		Phone:               "+2250700000000",
		Status:              params.Status,
		VehicleType:         params.Vehicle,
		Latitude:            util.Float64Pointer(lat),
		Longitude:           util.Float64Pointer(lon),
		Rating:              params.Rating,
		CompletedDeliveries: params.Completed,
		LastLocationUpdate:  &located,
	})
	require.NoError(t, err)
	return courier
}

func CreatePendingDelivery(t *testing.T, q db.Querier, order db.Order) db.Delivery {
	t.Helper()
	delivery, err := q.CreateDelivery(context.Background(), db.CreateDeliveryParams{
		OrderID:          order.ID,
		Status:           db.DeliveryStatusPending,
		TrackingCode:     util.GenerateTrackingCode(),
		PickupLatitude:   util.Float64Pointer(OriginLat),
		PickupLongitude:  util.Float64Pointer(OriginLon),
		DropoffLatitude:  order.DeliveryLatitude,
		DropoffLongitude: order.DeliveryLongitude,
	})
	require.NoError(t, err)
	return delivery
}

// SentNotification is one recorded Notify call.
type SentNotification struct {
	Recipient notification.Recipient
	EventType string
	Payload   map[string]string
}

// Notifier records notifications. Err, when set, is returned from every call.
type Notifier struct {
	mu   sync.Mutex
	Sent []SentNotification
	Err  error
}

func (n *Notifier) Notify(ctx context.Context, recipient notification.Recipient, eventType string, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentNotification{Recipient: recipient, EventType: eventType, Payload: payload})
	return n.Err
}

// To returns the notifications sent to recipient.
func (n *Notifier) To(recipient notification.Recipient) []SentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var sent []SentNotification
	for _, s := range n.Sent {
		if s.Recipient == recipient {
			sent = append(sent, s)
		}
	}
	return sent
}

// Alerter records operator alerts.
type Alerter struct {
	mu       sync.Mutex
	Subjects []string
}

func (a *Alerter) Alert(ctx context.Context, subject, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Subjects = append(a.Subjects, subject)
	return nil
}

func (a *Alerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Subjects)
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Events []event.Event
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
}

// OfType returns the recorded events with the given type.
func (p *Publisher) OfType(eventType string) []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []event.Event
	for _, e := range p.Events {
		if e.Type == eventType {
			events = append(events, e)
		}
	}
	return events
}
