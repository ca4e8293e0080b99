package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	testCases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		delta                  float64
	}{
		{"same point", 5.3364, -4.0267, 5.3364, -4.0267, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111.19, 0.01},
		{"Abidjan Plateau to Cocody", 5.3230, -4.0180, 5.3540, -3.9870, 4.86, 0.05},
		{"antipodes", 0, 0, 0, 180, math.Pi * EarthRadiusKm, 1e-6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceKm(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			assert.InDelta(t, tc.want, got, tc.delta)
		})
	}
}

func TestDistanceKmIsSymmetric(t *testing.T) {
	a := DistanceKm(5.30, -4.01, 5.40, -3.95)
	b := DistanceKm(5.40, -3.95, 5.30, -4.01)
	require.InDelta(t, a, b, 1e-9)
}

func TestValidateCoordinates(t *testing.T) {
	require.NoError(t, ValidateCoordinates(0, 0))
	require.NoError(t, ValidateCoordinates(-90, 180))
	require.ErrorIs(t, ValidateCoordinates(90.1, 0), ErrInvalidCoordinates)
	require.ErrorIs(t, ValidateCoordinates(0, -180.5), ErrInvalidCoordinates)
	require.ErrorIs(t, ValidateCoordinates(math.NaN(), 0), ErrInvalidCoordinates)
	require.ErrorIs(t, ValidateCoordinates(0, math.Inf(1)), ErrInvalidCoordinates)
}

func TestPoint(t *testing.T) {
	lat, lon := 5.3, -4.0
	gotLat, gotLon, ok := Point(&lat, &lon)
	require.True(t, ok)
	require.Equal(t, lat, gotLat)
	require.Equal(t, lon, gotLon)

	_, _, ok = Point(nil, &lon)
	require.False(t, ok)

	bad := 200.0
	_, _, ok = Point(&lat, &bad)
	require.False(t, ok)
}
