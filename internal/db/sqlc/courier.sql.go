package db

import (
	"context"
	"time"
)

const courierColumns = `id, user_id, name, phone, status, vehicle_type, latitude, longitude, rating,
	completed_deliveries, last_location_update, created_at, updated_at`

func scanCourier(row scanner) (Courier, error) {
	var i Courier
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Phone,
		&i.Status,
		&i.VehicleType,
		&i.Latitude,
		&i.Longitude,
		&i.Rating,
		&i.CompletedDeliveries,
		&i.LastLocationUpdate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCourier = `-- name: CreateCourier :one
INSERT INTO couriers (user_id, name, phone, status, vehicle_type, latitude, longitude, rating, completed_deliveries, last_location_update)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + courierColumns

type CreateCourierParams struct {
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
}

func (q *Queries) CreateCourier(ctx context.Context, arg CreateCourierParams) (Courier, error) {
	row := q.db.QueryRow(ctx, createCourier,
		arg.UserID,
		arg.Name,
		arg.Phone,
		arg.Status,
		arg.VehicleType,
		arg.Latitude,
		arg.Longitude,
		arg.Rating,
		arg.CompletedDeliveries,
		arg.LastLocationUpdate,
	)
	return scanCourier(row)
}

const getCourier = `-- name: GetCourier :one
SELECT ` + courierColumns + ` FROM couriers
WHERE id = $1`

func (q *Queries) GetCourier(ctx context.Context, id int64) (Courier, error) {
	row := q.db.QueryRow(ctx, getCourier, id)
	return scanCourier(row)
}

const listAvailableCouriers = `-- name: ListAvailableCouriers :many
SELECT ` + courierColumns + ` FROM couriers
WHERE status = 'available'
  AND latitude IS NOT NULL
  AND longitude IS NOT NULL
  AND last_location_update >= $1
ORDER BY id`

// ListAvailableCouriers returns available couriers whose position was reported at or after locatedSince.
func (q *Queries) ListAvailableCouriers(ctx context.Context, locatedSince time.Time) ([]Courier, error) {
	rows, err := q.db.Query(ctx, listAvailableCouriers, locatedSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Courier{}
	for rows.Next() {
		i, err := scanCourier(rows)
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

const claimCourier = `-- name: ClaimCourier :one
UPDATE couriers
SET status = 'busy', updated_at = now()
WHERE id = $1 AND status = 'available'
RETURNING ` + courierColumns

// ClaimCourier flips an available courier to busy. It returns ErrRecordNotFound
// when the courier was not available anymore.
func (q *Queries) ClaimCourier(ctx context.Context, id int64) (Courier, error) {
	row := q.db.QueryRow(ctx, claimCourier, id)
	return scanCourier(row)
}

const releaseCourier = `-- name: ReleaseCourier :execrows
UPDATE couriers
SET status = 'available', updated_at = now()
WHERE id = $1 AND status = 'busy'`

func (q *Queries) ReleaseCourier(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, releaseCourier, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const incrementCourierDeliveries = `-- name: IncrementCourierDeliveries :exec
UPDATE couriers
SET completed_deliveries = completed_deliveries + 1, updated_at = now()
WHERE id = $1`

func (q *Queries) IncrementCourierDeliveries(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, incrementCourierDeliveries, id)
	return err
}

const updateCourierLocation = `-- name: UpdateCourierLocation :one
UPDATE couriers
SET latitude = $2, longitude = $3, last_location_update = $4, updated_at = now()
WHERE id = $1
RETURNING ` + courierColumns

type UpdateCourierLocationParams struct {
	ID         int64     `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ReportedAt time.Time `json:"reported_at"`
}

func (q *Queries) UpdateCourierLocation(ctx context.Context, arg UpdateCourierLocationParams) (Courier, error) {
	row := q.db.QueryRow(ctx, updateCourierLocation,
		arg.ID,
		arg.Latitude,
		arg.Longitude,
		arg.ReportedAt,
	)
	return scanCourier(row)
}

const updateCourierStatus = `-- name: UpdateCourierStatus :one
UPDATE couriers
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + courierColumns

type UpdateCourierStatusParams struct {
	ID     int64         `json:"id"`
	Status CourierStatus `json:"status"`
}

func (q *Queries) UpdateCourierStatus(ctx context.Context, arg UpdateCourierStatusParams) (Courier, error) {
	row := q.db.QueryRow(ctx, updateCourierStatus, arg.ID, arg.Status)
	return scanCourier(row)
}
