package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

// Event is one domain event. Topic scopes it for SSE subscribers, e.g. "delivery:42".
type Event struct {
	ID         string      `json:"id"`
	Topic      string      `json:"topic"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

const (
	EventTypeCourierAssigned       = "courier.assigned"
	EventTypeDeliveryStatusChanged = "delivery.status_changed"
	EventTypeWaitingFeeUpdated     = "delivery.waiting_fee_updated"
	EventTypePaymentConfirmed      = "payment.confirmed"
	EventTypeCommissionDistributed = "commission.distributed"
	EventTypeDeliveryUnassignable  = "delivery.unassignable"
)

func New(topic, eventType string, data interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func DeliveryTopic(deliveryID int64) string {
	return fmt.Sprintf("delivery:%d", deliveryID)
}

func OrderTopic(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

type CourierAssigned struct {
	DeliveryID int64   `json:"delivery_id"`
	OrderID    int64   `json:"order_id"`
	CourierID  int64   `json:"courier_id"`
	DistanceKm float64 `json:"distance_km"`
	Score      float64 `json:"score"`
}

type DeliveryStatusChanged struct {
	DeliveryID int64             `json:"delivery_id"`
	OrderID    int64             `json:"order_id"`
	CourierID  *int64            `json:"courier_id"`
	From       db.DeliveryStatus `json:"from"`
	To         db.DeliveryStatus `json:"to"`
	Reason     string            `json:"reason,omitempty"`
}

type WaitingFeeUpdated struct {
	DeliveryID int64 `json:"delivery_id"`
	WaitingFee int64 `json:"waiting_fee"`
}

type PaymentConfirmed struct {
	PaymentID int64  `json:"payment_id"`
	OrderID   int64  `json:"order_id"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

type CommissionDistributed struct {
	CommissionID int64 `json:"commission_id"`
	OrderID      int64 `json:"order_id"`
	TotalAmount  int64 `json:"total_amount"`
	Lines        int   `json:"lines"`
}

// Publisher is what the engines depend on to announce state changes.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// EventSender pushes events to connected SSE clients.
type EventSender interface {
	Register(topic string, client chan Event)
	Unregister(topic string, client chan Event)
	Broadcast(event Event)
	Run()
}
