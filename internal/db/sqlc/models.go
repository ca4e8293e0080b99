package db

import (
	"fmt"
	"time"
)

type CourierStatus string

const (
	CourierStatusPending   CourierStatus = "pending"
	CourierStatusApproved  CourierStatus = "approved"
	CourierStatusRejected  CourierStatus = "rejected"
	CourierStatusSuspended CourierStatus = "suspended"
	CourierStatusAvailable CourierStatus = "available"
	CourierStatusBusy      CourierStatus = "busy"
	CourierStatusOffline   CourierStatus = "offline"
)

type VehicleType string

const (
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeScooter    VehicleType = "scooter"
	VehicleTypeBicycle    VehicleType = "bicycle"
	VehicleTypeOnFoot     VehicleType = "on_foot"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusAssigned   OrderStatus = "assigned"
	OrderStatusInDelivery OrderStatus = "in_delivery"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsClosed reports whether the order reached a terminal status.
func (s OrderStatus) IsClosed() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusAccepted  DeliveryStatus = "accepted"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

type WalletTransactionType string

const (
	WalletTransactionTypeCredit WalletTransactionType = "credit"
	WalletTransactionTypeDebit  WalletTransactionType = "debit"
)

type SettingType string

const (
	SettingTypeString SettingType = "string"
	SettingTypeInt    SettingType = "int"
	SettingTypeFloat  SettingType = "float"
	SettingTypeBool   SettingType = "bool"
	SettingTypeJSON   SettingType = "json"
)

// ActorType tags the owner of a wallet or the beneficiary of a commission line.
type ActorType string

const (
	ActorTypePlatform ActorType = "platform"
	ActorTypePharmacy ActorType = "pharmacy"
	ActorTypeCourier  ActorType = "courier"
)

// ActorRef is Platform | Pharmacy(id) | Courier(id). The platform carries no id.
type ActorRef struct {
	Type ActorType `json:"type"`
	ID   int64     `json:"id,omitempty"`
}

func PlatformActor() ActorRef { return ActorRef{Type: ActorTypePlatform} }
func PharmacyActor(id int64) ActorRef { return ActorRef{Type: ActorTypePharmacy, ID: id} }
func CourierActor(id int64) ActorRef { return ActorRef{Type: ActorTypeCourier, ID: id} }

// OwnerID returns the nullable column value for the actor.
func (a ActorRef) OwnerID() *int64 {
	if a.Type == ActorTypePlatform {
		return nil
	}
	id := a.ID
	return &id
}

func (a ActorRef) String() string {
	if a.Type == ActorTypePlatform {
		return string(ActorTypePlatform)
	}
	return fmt.Sprintf("%s:%d", a.Type, a.ID)
}

// ParseActorRef builds an ActorRef from its stored columns.
func ParseActorRef(actorType string, id *int64) (ActorRef, error) {
	switch ActorType(actorType) {
	case ActorTypePlatform:
		return PlatformActor(), nil
	case ActorTypePharmacy, ActorTypeCourier:
		if id == nil {
			return ActorRef{}, fmt.Errorf("actor %s requires an id", actorType)
		}
		return ActorRef{Type: ActorType(actorType), ID: *id}, nil
	default:
		return ActorRef{}, fmt.Errorf("unknown actor type %q", actorType)
	}
}

type Courier struct {
	ID                  int64         `json:"id"`
	UserID              int64         `json:"user_id"`
	Name                string        `json:"name"`
	Phone               string        `json:"phone"`
	Status              CourierStatus `json:"status"`
	VehicleType         VehicleType   `json:"vehicle_type"`
	Latitude            *float64      `json:"latitude"`
	Longitude           *float64      `json:"longitude"`
	Rating              float64       `json:"rating"`
	CompletedDeliveries int64         `json:"completed_deliveries"`
	LastLocationUpdate  *time.Time    `json:"last_location_update"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// IsAvailable reports whether the courier can take a new delivery.
func (c Courier) IsAvailable() bool {
	return c.Status == CourierStatusAvailable
}

type Pharmacy struct {
	ID                     int64     `json:"id"`
	Name                   string    `json:"name"`
	Latitude               *float64  `json:"latitude"`
	Longitude              *float64  `json:"longitude"`
	CommissionRatePharmacy *float64  `json:"commission_rate_pharmacy"`
	CreatedAt              time.Time `json:"created_at"`
}

type Order struct {
	ID                int64       `json:"id"`
	Reference         string      `json:"reference"`
	PharmacyID        int64       `json:"pharmacy_id"`
	CustomerID        int64       `json:"customer_id"`
	Status            OrderStatus `json:"status"`
	Subtotal          int64       `json:"subtotal"`
	DeliveryFee       int64       `json:"delivery_fee"`
	TotalAmount       int64       `json:"total_amount"`
	DeliveryLatitude  *float64    `json:"delivery_latitude"`
	DeliveryLongitude *float64    `json:"delivery_longitude"`
	PaymentMode       string      `json:"payment_mode"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type Delivery struct {
	ID                 int64          `json:"id"`
	OrderID            int64          `json:"order_id"`
	CourierID          *int64         `json:"courier_id"`
	Status             DeliveryStatus `json:"status"`
	TrackingCode       string         `json:"tracking_code"`
	PickupLatitude     *float64       `json:"pickup_latitude"`
	PickupLongitude    *float64       `json:"pickup_longitude"`
	DropoffLatitude    *float64       `json:"dropoff_latitude"`
	DropoffLongitude   *float64       `json:"dropoff_longitude"`
	AssignedAt         *time.Time     `json:"assigned_at"`
	AcceptedAt         *time.Time     `json:"accepted_at"`
	PickedUpAt         *time.Time     `json:"picked_up_at"`
	DeliveredAt        *time.Time     `json:"delivered_at"`
	CancelledAt        *time.Time     `json:"cancelled_at"`
	WaitingStartedAt   *time.Time     `json:"waiting_started_at"`
	WaitingEndedAt     *time.Time     `json:"waiting_ended_at"`
	WaitingFee         int64          `json:"waiting_fee"`
	AutoCancelledAt    *time.Time     `json:"auto_cancelled_at"`
	CancellationReason *string        `json:"cancellation_reason"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsWaiting reports whether the waiting timer is running.
func (d Delivery) IsWaiting() bool {
	return d.WaitingStartedAt != nil && d.WaitingEndedAt == nil
}

type Commission struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"order_id"`
	TotalAmount  int64     `json:"total_amount"`
	CalculatedAt time.Time `json:"calculated_at"`
}

type CommissionLine struct {
	ID           int64     `json:"id"`
	CommissionID int64     `json:"commission_id"`
	ActorType    ActorType `json:"actor_type"`
	ActorID      *int64    `json:"actor_id"`
	Rate         float64   `json:"rate"`
	Amount       int64     `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor returns the line beneficiary.
func (l CommissionLine) Actor() (ActorRef, error) {
	return ParseActorRef(string(l.ActorType), l.ActorID)
}

type Wallet struct {
	ID        int64     `json:"id"`
	OwnerType ActorType `json:"owner_type"`
	OwnerID   *int64    `json:"owner_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletTransaction struct {
	ID          int64                 `json:"id"`
	WalletID    int64                 `json:"wallet_id"`
	Amount      int64                 `json:"amount"`
	Type        WalletTransactionType `json:"type"`
	Reference   string                `json:"reference"`
	Description string                `json:"description"`
	Metadata    []byte                `json:"metadata"`
	CreatedAt   time.Time             `json:"created_at"`
}

type Setting struct {
	Key       string      `json:"key"`
	Value     string      `json:"value"`
	Type      SettingType `json:"type"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Payment struct {
	ID         int64         `json:"id"`
	OrderID    int64         `json:"order_id"`
	Reference  string        `json:"reference"`
	Provider   string        `json:"provider"`
	Amount     int64         `json:"amount"`
	Status     PaymentStatus `json:"status"`
	Raw        []byte        `json:"raw"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}
