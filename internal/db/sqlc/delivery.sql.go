package db

import (
	"context"
	"time"
)

const deliveryColumns = `id, order_id, courier_id, status, tracking_code,
	pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
	assigned_at, accepted_at, picked_up_at, delivered_at, cancelled_at,
	waiting_started_at, waiting_ended_at, waiting_fee, auto_cancelled_at, cancellation_reason,
	created_at, updated_at`

func scanDelivery(row scanner) (Delivery, error) {
	var i Delivery
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.CourierID,
		&i.Status,
		&i.TrackingCode,
		&i.PickupLatitude,
		&i.PickupLongitude,
		&i.DropoffLatitude,
		&i.DropoffLongitude,
		&i.AssignedAt,
		&i.AcceptedAt,
		&i.PickedUpAt,
		&i.DeliveredAt,
		&i.CancelledAt,
		&i.WaitingStartedAt,
		&i.WaitingEndedAt,
		&i.WaitingFee,
		&i.AutoCancelledAt,
		&i.CancellationReason,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) listDeliveries(ctx context.Context, query string, args ...interface{}) ([]Delivery, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Delivery{}
	for rows.Next() {
		i, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createDelivery = `-- name: CreateDelivery :one
INSERT INTO deliveries (order_id, status, tracking_code, pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + deliveryColumns

type CreateDeliveryParams struct {
	OrderID          int64          `json:"order_id"`
	Status           DeliveryStatus `json:"status"`
	TrackingCode     string         `json:"tracking_code"`
	PickupLatitude   *float64       `json:"pickup_latitude"`
	PickupLongitude  *float64       `json:"pickup_longitude"`
	DropoffLatitude  *float64       `json:"dropoff_latitude"`
	DropoffLongitude *float64       `json:"dropoff_longitude"`
}

func (q *Queries) CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (Delivery, error) {
	row := q.db.QueryRow(ctx, createDelivery,
		arg.OrderID,
		arg.Status,
		arg.TrackingCode,
		arg.PickupLatitude,
		arg.PickupLongitude,
		arg.DropoffLatitude,
		arg.DropoffLongitude,
	)
	return scanDelivery(row)
}

const getDelivery = `-- name: GetDelivery :one
SELECT ` + deliveryColumns + ` FROM deliveries
WHERE id = $1`

func (q *Queries) GetDelivery(ctx context.Context, id int64) (Delivery, error) {
	row := q.db.QueryRow(ctx, getDelivery, id)
	return scanDelivery(row)
}

const getDeliveryForUpdate = `-- name: GetDeliveryForUpdate :one
SELECT ` + deliveryColumns + ` FROM deliveries
WHERE id = $1
FOR UPDATE`

func (q *Queries) GetDeliveryForUpdate(ctx context.Context, id int64) (Delivery, error) {
	row := q.db.QueryRow(ctx, getDeliveryForUpdate, id)
	return scanDelivery(row)
}

const getDeliveryByOrderID = `-- name: GetDeliveryByOrderID :one
SELECT ` + deliveryColumns + ` FROM deliveries
WHERE order_id = $1`

func (q *Queries) GetDeliveryByOrderID(ctx context.Context, orderID int64) (Delivery, error) {
	row := q.db.QueryRow(ctx, getDeliveryByOrderID, orderID)
	return scanDelivery(row)
}

const updateDelivery = `-- name: UpdateDelivery :one
UPDATE deliveries
SET
    courier_id = $2,
    status = $3,
    assigned_at = $4,
    accepted_at = $5,
    picked_up_at = $6,
    delivered_at = $7,
    cancelled_at = $8,
    waiting_started_at = $9,
    waiting_ended_at = $10,
    waiting_fee = $11,
    auto_cancelled_at = $12,
    cancellation_reason = $13,
    updated_at = now()
WHERE id = $1
RETURNING ` + deliveryColumns

type UpdateDeliveryParams struct {
	ID                 int64          `json:"id"`
	CourierID          *int64         `json:"courier_id"`
	Status             DeliveryStatus `json:"status"`
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
}

// UpdateDeliveryParamsFrom copies the mutable fields of d.
func UpdateDeliveryParamsFrom(d Delivery) UpdateDeliveryParams {
	return UpdateDeliveryParams{
		ID:                 d.ID,
		CourierID:          d.CourierID,
		Status:             d.Status,
		AssignedAt:         d.AssignedAt,
		AcceptedAt:         d.AcceptedAt,
		PickedUpAt:         d.PickedUpAt,
		DeliveredAt:        d.DeliveredAt,
		CancelledAt:        d.CancelledAt,
		WaitingStartedAt:   d.WaitingStartedAt,
		WaitingEndedAt:     d.WaitingEndedAt,
		WaitingFee:         d.WaitingFee,
		AutoCancelledAt:    d.AutoCancelledAt,
		CancellationReason: d.CancellationReason,
	}
}

func (q *Queries) UpdateDelivery(ctx context.Context, arg UpdateDeliveryParams) (Delivery, error) {
	row := q.db.QueryRow(ctx, updateDelivery,
		arg.ID,
		arg.CourierID,
		arg.Status,
		arg.AssignedAt,
		arg.AcceptedAt,
		arg.PickedUpAt,
		arg.DeliveredAt,
		arg.CancelledAt,
		arg.WaitingStartedAt,
		arg.WaitingEndedAt,
		arg.WaitingFee,
		arg.AutoCancelledAt,
		arg.CancellationReason,
	)
	return scanDelivery(row)
}

const listPendingUnassignedDeliveries = `-- name: ListPendingUnassignedDeliveries :many
SELECT ` + deliveryColumns + ` FROM deliveries
WHERE status = 'pending' AND courier_id IS NULL
ORDER BY created_at, id`

func (q *Queries) ListPendingUnassignedDeliveries(ctx context.Context) ([]Delivery, error) {
	return q.listDeliveries(ctx, listPendingUnassignedDeliveries)
}

const listWaitingDeliveries = `-- name: ListWaitingDeliveries :many
SELECT ` + deliveryColumns + ` FROM deliveries
WHERE status = 'in_transit'
  AND waiting_started_at IS NOT NULL
  AND waiting_ended_at IS NULL
  AND auto_cancelled_at IS NULL
ORDER BY waiting_started_at, id`

func (q *Queries) ListWaitingDeliveries(ctx context.Context) ([]Delivery, error) {
	return q.listDeliveries(ctx, listWaitingDeliveries)
}

const listTimedOutWaitingDeliveries = `-- name: ListTimedOutWaitingDeliveries :many
SELECT ` + deliveryColumns + ` FROM deliveries
WHERE status = 'in_transit'
  AND waiting_started_at IS NOT NULL
  AND waiting_ended_at IS NULL
  AND auto_cancelled_at IS NULL
  AND waiting_started_at <= $1
ORDER BY waiting_started_at, id`

// ListTimedOutWaitingDeliveries returns waiting deliveries whose timer started at or before startedBefore.
func (q *Queries) ListTimedOutWaitingDeliveries(ctx context.Context, startedBefore time.Time) ([]Delivery, error) {
	return q.listDeliveries(ctx, listTimedOutWaitingDeliveries, startedBefore)
}

const raiseWaitingFee = `-- name: RaiseWaitingFee :execrows
UPDATE deliveries
SET waiting_fee = GREATEST(waiting_fee, $2), updated_at = now()
WHERE id = $1
  AND waiting_ended_at IS NULL
  AND waiting_fee < $2`

type RaiseWaitingFeeParams struct {
	ID  int64 `json:"id"`
	Fee int64 `json:"fee"`
}

// RaiseWaitingFee never lowers the stored fee and does nothing once waiting has ended.
func (q *Queries) RaiseWaitingFee(ctx context.Context, arg RaiseWaitingFeeParams) (int64, error) {
	result, err := q.db.Exec(ctx, raiseWaitingFee, arg.ID, arg.Fee)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
