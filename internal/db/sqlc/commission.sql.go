package db

import (
	"context"
)

const getCommissionByOrderID = `-- name: GetCommissionByOrderID :one
SELECT id, order_id, total_amount, calculated_at FROM commissions
WHERE order_id = $1`

func (q *Queries) GetCommissionByOrderID(ctx context.Context, orderID int64) (Commission, error) {
	row := q.db.QueryRow(ctx, getCommissionByOrderID, orderID)
	var i Commission
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.TotalAmount,
		&i.CalculatedAt,
	)
	return i, err
}

const createCommission = `-- name: CreateCommission :one
INSERT INTO commissions (order_id, total_amount)
VALUES ($1, $2)
RETURNING id, order_id, total_amount, calculated_at`

type CreateCommissionParams struct {
	OrderID     int64 `json:"order_id"`
	TotalAmount int64 `json:"total_amount"`
}

func (q *Queries) CreateCommission(ctx context.Context, arg CreateCommissionParams) (Commission, error) {
	row := q.db.QueryRow(ctx, createCommission, arg.OrderID, arg.TotalAmount)
	var i Commission
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.TotalAmount,
		&i.CalculatedAt,
	)
	return i, err
}

const createCommissionLine = `-- name: CreateCommissionLine :one
INSERT INTO commission_lines (commission_id, actor_type, actor_id, rate, amount)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, commission_id, actor_type, actor_id, rate, amount, created_at`

type CreateCommissionLineParams struct {
	CommissionID int64     `json:"commission_id"`
	ActorType    ActorType `json:"actor_type"`
	ActorID      *int64    `json:"actor_id"`
	Rate         float64   `json:"rate"`
	Amount       int64     `json:"amount"`
}

func (q *Queries) CreateCommissionLine(ctx context.Context, arg CreateCommissionLineParams) (CommissionLine, error) {
	row := q.db.QueryRow(ctx, createCommissionLine,
		arg.CommissionID,
		arg.ActorType,
		arg.ActorID,
		arg.Rate,
		arg.Amount,
	)
	var i CommissionLine
	err := row.Scan(
		&i.ID,
		&i.CommissionID,
		&i.ActorType,
		&i.ActorID,
		&i.Rate,
		&i.Amount,
		&i.CreatedAt,
	)
	return i, err
}

const listCommissionLines = `-- name: ListCommissionLines :many
SELECT id, commission_id, actor_type, actor_id, rate, amount, created_at FROM commission_lines
WHERE commission_id = $1
ORDER BY id`

func (q *Queries) ListCommissionLines(ctx context.Context, commissionID int64) ([]CommissionLine, error) {
	rows, err := q.db.Query(ctx, listCommissionLines, commissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CommissionLine{}
	for rows.Next() {
		var i CommissionLine
		if err := rows.Scan(
			&i.ID,
			&i.CommissionID,
			&i.ActorType,
			&i.ActorID,
			&i.Rate,
			&i.Amount,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
