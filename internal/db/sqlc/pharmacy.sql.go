package db

import (
	"context"
)

const pharmacyColumns = `id, name, latitude, longitude, commission_rate_pharmacy, created_at`

func scanPharmacy(row scanner) (Pharmacy, error) {
	var i Pharmacy
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Latitude,
		&i.Longitude,
		&i.CommissionRatePharmacy,
		&i.CreatedAt,
	)
	return i, err
}

const createPharmacy = `-- name: CreatePharmacy :one
INSERT INTO pharmacies (name, latitude, longitude, commission_rate_pharmacy)
VALUES ($1, $2, $3, $4)
RETURNING ` + pharmacyColumns

type CreatePharmacyParams struct {
	Name                   string   `json:"name"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	CommissionRatePharmacy *float64 `json:"commission_rate_pharmacy"`
}

func (q *Queries) CreatePharmacy(ctx context.Context, arg CreatePharmacyParams) (Pharmacy, error) {
	row := q.db.QueryRow(ctx, createPharmacy,
		arg.Name,
		arg.Latitude,
		arg.Longitude,
		arg.CommissionRatePharmacy,
	)
	return scanPharmacy(row)
}

const getPharmacy = `-- name: GetPharmacy :one
SELECT ` + pharmacyColumns + ` FROM pharmacies
WHERE id = $1`

func (q *Queries) GetPharmacy(ctx context.Context, id int64) (Pharmacy, error) {
	row := q.db.QueryRow(ctx, getPharmacy, id)
	return scanPharmacy(row)
}
