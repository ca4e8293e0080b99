package dispatch

import (
	"context"
	"fmt"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/geo"
)

// Candidate is an available courier annotated with its distance to the pickup point.
type Candidate struct {
	Courier    db.Courier `json:"courier"`
	DistanceKm float64    `json:"distance_km"`
	Score      float64    `json:"score"`
}

// Pool finds couriers that can take a delivery right now.
type Pool struct {
	// Freshness bounds how old a courier's last reported position may be.
	Freshness time.Duration
}

// AvailableWithinRadius returns available couriers with a fresh position at most radiusKm
// from the origin. The result is unsorted and empty when nobody qualifies.
func (p Pool) AvailableWithinRadius(
	ctx context.Context,
	q db.Querier,
	originLat, originLon, radiusKm float64,
	now time.Time,
	exclude ...int64,
) ([]Candidate, error) {
	couriers, err := q.ListAvailableCouriers(ctx, now.Add(-p.Freshness))
	if err != nil {
		return nil, fmt.Errorf("failed to list available couriers: %w", err)
	}

	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	candidates := make([]Candidate, 0, len(couriers))
	for _, courier := range couriers {
		if skip[courier.ID] || !courier.IsAvailable() {
			continue
		}
		lat, lon, ok := geo.Point(courier.Latitude, courier.Longitude)
		if !ok {
			continue
		}
		distance := geo.DistanceKm(originLat, originLon, lat, lon)
		if distance > radiusKm {
			continue
		}
		candidates = append(candidates, Candidate{Courier: courier, DistanceKm: distance})
	}

	return candidates, nil
}
