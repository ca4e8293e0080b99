package db

import (
	"context"
)

const orderColumns = `id, reference, pharmacy_id, customer_id, status, subtotal, delivery_fee, total_amount,
	delivery_latitude, delivery_longitude, payment_mode, created_at, updated_at`

func scanOrder(row scanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Reference,
		&i.PharmacyID,
		&i.CustomerID,
		&i.Status,
		&i.Subtotal,
		&i.DeliveryFee,
		&i.TotalAmount,
		&i.DeliveryLatitude,
		&i.DeliveryLongitude,
		&i.PaymentMode,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (reference, pharmacy_id, customer_id, status, subtotal, delivery_fee, total_amount, delivery_latitude, delivery_longitude, payment_mode)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

type CreateOrderParams struct {
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
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.Reference,
		arg.PharmacyID,
		arg.CustomerID,
		arg.Status,
		arg.Subtotal,
		arg.DeliveryFee,
		arg.TotalAmount,
		arg.DeliveryLatitude,
		arg.DeliveryLongitude,
		arg.PaymentMode,
	)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	return scanOrder(row)
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1
FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	return scanOrder(row)
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     int64       `json:"id"`
	Status OrderStatus `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	return scanOrder(row)
}
