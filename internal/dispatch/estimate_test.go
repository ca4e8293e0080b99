package dispatch

import (
	"testing"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/geo"
	"github.com/pharmago/dispatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateDeliveryTime(t *testing.T) {
	testCases := []struct {
		name       string
		distanceKm float64
		vehicle    db.VehicleType
		expected   int
	}{
		{name: "motorcycle", distanceKm: 7.2, vehicle: db.VehicleTypeMotorcycle, expected: 15 + HandlingBufferMinutes},
		{name: "bicycle", distanceKm: 7.2, vehicle: db.VehicleTypeBicycle, expected: 29 + HandlingBufferMinutes},
		{name: "on foot", distanceKm: 1.3, vehicle: db.VehicleTypeOnFoot, expected: 16 + HandlingBufferMinutes},
		{name: "unknown vehicle uses default speed", distanceKm: 4.1, vehicle: "truck", expected: 13 + HandlingBufferMinutes},
		{name: "same point", distanceKm: 0, vehicle: db.VehicleTypeCar, expected: HandlingBufferMinutes},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lat, lon := testutil.Offset(tc.distanceKm)
			minutes, err := EstimateDeliveryTime(testutil.OriginLat, testutil.OriginLon, lat, lon, tc.vehicle)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, minutes)
		})
	}
}

func TestEstimateDeliveryTimeInvalidCoordinates(t *testing.T) {
	_, err := EstimateDeliveryTime(95, 0, 5, -4, db.VehicleTypeCar)
	require.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestMotorcycleFasterThanWalking(t *testing.T) {
	assert.Greater(t, AverageSpeedKmh(db.VehicleTypeMotorcycle), AverageSpeedKmh(db.VehicleTypeBicycle))
	assert.Greater(t, AverageSpeedKmh(db.VehicleTypeBicycle), AverageSpeedKmh(db.VehicleTypeOnFoot))
}
