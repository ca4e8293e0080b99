// Package geo computes great-circle distances between coordinates.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// DistanceKm returns the haversine distance in kilometres.
// Inputs must be validated with ValidateCoordinates first.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// ValidateCoordinates rejects NaN, infinities and out-of-range values.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("%w: not a number", ErrInvalidCoordinates)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %f out of [-90, 90]", ErrInvalidCoordinates, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %f out of [-180, 180]", ErrInvalidCoordinates, lon)
	}
	return nil
}

// Point dereferences a nullable coordinate pair. ok is false when either side is missing or invalid.
func Point(lat, lon *float64) (float64, float64, bool) {
	if lat == nil || lon == nil {
		return 0, 0, false
	}
	if ValidateCoordinates(*lat, *lon) != nil {
		return 0, 0, false
	}
	return *lat, *lon, true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
