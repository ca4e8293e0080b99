package notification

import (
	"fmt"
	"time"

	"github.com/pharmago/dispatch/internal/util"
)

type RecipientKind string

const (
	RecipientCustomer RecipientKind = "customer"
	RecipientCourier  RecipientKind = "courier"
	RecipientPharmacy RecipientKind = "pharmacy"
)

type Recipient struct {
	Kind RecipientKind `json:"kind"`
	ID   int64         `json:"id"`
}

func Customer(id int64) Recipient { return Recipient{Kind: RecipientCustomer, ID: id} }
func Courier(id int64) Recipient { return Recipient{Kind: RecipientCourier, ID: id} }
func Pharmacy(id int64) Recipient { return Recipient{Kind: RecipientPharmacy, ID: id} }

// Topic is the FCM topic a recipient's devices subscribe to.
func (r Recipient) Topic() string {
	return fmt.Sprintf("%s_%d", r.Kind, r.ID)
}

func (r Recipient) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

const (
	TypeDeliveryAssigned      = "delivery.assigned"
	TypeDeliveryCancelled     = "delivery.cancelled"
	TypeDeliveryAutoCancelled = "delivery.auto_cancelled"
	TypeDeliveryDelivered     = "delivery.delivered"
	TypeCommissionCredited    = "commission.credited"
)

type Notification struct {
	Recipient   Recipient
	Title       string
	Message     string
	Type        string
	ReferenceID string
	Data        map[string]string
	IsRead      bool
	CreatedAt   time.Time
}

// Build turns an event type and its payload into a displayable notification.
func Build(recipient Recipient, eventType string, payload map[string]string) *Notification {
	title, message := compose(recipient, eventType, payload)
	return &Notification{
		Recipient:   recipient,
		Title:       title,
		Message:     message,
		Type:        eventType,
		ReferenceID: payload["delivery_id"],
		Data:        payload,
		CreatedAt:   time.Now(),
	}
}

const maxReasonLength = 120

func compose(recipient Recipient, eventType string, payload map[string]string) (string, string) {
	order := payload["order_reference"]
	switch eventType {
	case TypeDeliveryAssigned:
		return "New delivery", fmt.Sprintf("You have been assigned order %s. Pickup at %s.", order, payload["pharmacy_name"])
	case TypeDeliveryCancelled:
		return "Delivery cancelled", fmt.Sprintf("The delivery of order %s was cancelled: %s", order, util.TruncateContent(payload["reason"], maxReasonLength))
	case TypeDeliveryAutoCancelled:
		if recipient.Kind == RecipientCourier {
			return "Delivery cancelled", fmt.Sprintf("The customer did not show up for order %s. Waiting fee: %s.", order, payload["waiting_fee"])
		}
		return "Delivery cancelled", fmt.Sprintf("Order %s was cancelled after the waiting time ran out. Waiting fee: %s.", order, payload["waiting_fee"])
	case TypeDeliveryDelivered:
		return "Order delivered", fmt.Sprintf("Order %s has been delivered.", order)
	case TypeCommissionCredited:
		return "Wallet credited", fmt.Sprintf("%s credited for order %s.", payload["amount"], order)
	default:
		return eventType, order
	}
}
