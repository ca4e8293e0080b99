package dispatch

import (
	"testing"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id int64, distance, rating float64, completed int64, located time.Time) Candidate {
	return Candidate{
		Courier: db.Courier{
			ID:                  id,
			Rating:              rating,
			CompletedDeliveries: completed,
			LastLocationUpdate:  &located,
		},
		DistanceKm: distance,
	}
}

func TestScoreBounds(t *testing.T) {
	now := time.Now()

	perfect := candidate(1, 0, 5, 500, now)
	assert.InDelta(t, 1.0, Score(perfect, 20, 30*time.Minute, now), 1e-9)

	worst := candidate(2, 20, 0, 0, now.Add(-30*time.Minute))
	assert.InDelta(t, 0.0, Score(worst, 20, 30*time.Minute, now), 1e-9)

	noLocation := Candidate{Courier: db.Courier{ID: 3, Rating: 5}, DistanceKm: 0}
	assert.InDelta(t, 0.75, Score(noLocation, 20, 30*time.Minute, now), 1e-9)
}

func TestScoreWeights(t *testing.T) {
	now := time.Now()

	// distance 10/20, rating 4/5, 50 deliveries, located 15 of 30 minutes ago
	c := candidate(1, 10, 4, 50, now.Add(-15*time.Minute))
	expected := 0.50*0.5 + 0.25*0.8 + 0.15*0.5 + 0.10*0.5
	assert.InDelta(t, expected, Score(c, 20, 30*time.Minute, now), 1e-9)
}

func TestRankOrdering(t *testing.T) {
	now := time.Now()
	candidates := []Candidate{
		candidate(7, 5, 4, 10, now),
		candidate(3, 1, 4, 10, now),
		candidate(5, 5, 4, 10, now),
	}

	ranked := Rank(candidates, 20, 30*time.Minute, now)
	require.Len(t, ranked, 3)
	assert.Equal(t, []int64{3, 5, 7}, []int64{ranked[0].Courier.ID, ranked[1].Courier.ID, ranked[2].Courier.ID})
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, ranked[1].Score, ranked[2].Score)

	// input slice is not reordered
	assert.Equal(t, int64(7), candidates[0].Courier.ID)
}
