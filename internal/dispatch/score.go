package dispatch

import (
	"math"
	"sort"
	"time"
)

const (
	weightDistance   = 0.50
	weightRating     = 0.25
	weightExperience = 0.15
	weightRecency    = 0.10

	maxRating               = 5.0
	experienceCapDeliveries = 100
)

// Score rates a candidate in [0, 1]. Closer, better rated, more experienced and
// more recently located couriers score higher.
func Score(c Candidate, radiusKm float64, freshness time.Duration, now time.Time) float64 {
	distance := 0.0
	if radiusKm > 0 {
		distance = clamp01(1 - c.DistanceKm/radiusKm)
	}

	rating := clamp01(c.Courier.Rating / maxRating)

	experience := float64(min(c.Courier.CompletedDeliveries, experienceCapDeliveries)) / experienceCapDeliveries
	experience = clamp01(experience)

	recency := 0.0
	if c.Courier.LastLocationUpdate != nil && freshness > 0 {
		age := now.Sub(*c.Courier.LastLocationUpdate)
		recency = clamp01(1 - float64(age)/float64(freshness))
	}

	return weightDistance*distance + weightRating*rating + weightExperience*experience + weightRecency*recency
}

// Rank scores candidates and orders them best first: score desc, then distance asc, then courier id asc.
func Rank(candidates []Candidate, radiusKm float64, freshness time.Duration, now time.Time) []Candidate {
	ranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = Score(c, radiusKm, freshness, now)
		ranked[i] = c
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Courier.ID < b.Courier.ID
	})
	return ranked
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
