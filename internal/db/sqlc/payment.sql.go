package db

import (
	"context"
	"time"
)

const paymentColumns = `id, order_id, reference, provider, amount, status, raw, created_at, resolved_at`

func scanPayment(row scanner) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Reference,
		&i.Provider,
		&i.Amount,
		&i.Status,
		&i.Raw,
		&i.CreatedAt,
		&i.ResolvedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, reference, provider, amount, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID   int64         `json:"order_id"`
	Reference string        `json:"reference"`
	Provider  string        `json:"provider"`
	Amount    int64         `json:"amount"`
	Status    PaymentStatus `json:"status"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.Reference,
		arg.Provider,
		arg.Amount,
		arg.Status,
	)
	return scanPayment(row)
}

const getPaymentByReference = `-- name: GetPaymentByReference :one
SELECT ` + paymentColumns + ` FROM payments
WHERE reference = $1`

func (q *Queries) GetPaymentByReference(ctx context.Context, reference string) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByReference, reference)
	return scanPayment(row)
}

const listStalePendingPayments = `-- name: ListStalePendingPayments :many
SELECT ` + paymentColumns + ` FROM payments
WHERE status = 'pending' AND created_at <= $1
ORDER BY created_at, id`

func (q *Queries) ListStalePendingPayments(ctx context.Context, createdBefore time.Time) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listStalePendingPayments, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
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

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE payments
SET status = $2, raw = COALESCE($3, raw), resolved_at = $4
WHERE id = $1
RETURNING ` + paymentColumns

type UpdatePaymentStatusParams struct {
	ID         int64         `json:"id"`
	Status     PaymentStatus `json:"status"`
	Raw        []byte        `json:"raw"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePaymentStatus,
		arg.ID,
		arg.Status,
		arg.Raw,
		arg.ResolvedAt,
	)
	return scanPayment(row)
}

const getPaymentByReferenceForUpdate = `-- name: GetPaymentByReferenceForUpdate :one
SELECT ` + paymentColumns + ` FROM payments
WHERE reference = $1
FOR UPDATE`

func (q *Queries) GetPaymentByReferenceForUpdate(ctx context.Context, reference string) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByReferenceForUpdate, reference)
	return scanPayment(row)
}
