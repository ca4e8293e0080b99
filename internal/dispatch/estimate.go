package dispatch

import (
	"math"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/geo"
)

// HandlingBufferMinutes is added to every travel estimate for pickup and handover.
const HandlingBufferMinutes = 5

var averageSpeedKmh = map[db.VehicleType]float64{
	db.VehicleTypeMotorcycle: 30,
	db.VehicleTypeCar:        25,
	db.VehicleTypeScooter:    25,
	db.VehicleTypeBicycle:    15,
	db.VehicleTypeOnFoot:     5,
}

const defaultSpeedKmh = 20

func AverageSpeedKmh(vehicle db.VehicleType) float64 {
	if speed, ok := averageSpeedKmh[vehicle]; ok {
		return speed
	}
	return defaultSpeedKmh
}

// EstimateDeliveryTime returns the travel time in whole minutes, rounded up, plus the handling buffer.
func EstimateDeliveryTime(lat1, lon1, lat2, lon2 float64, vehicle db.VehicleType) (int, error) {
	if err := geo.ValidateCoordinates(lat1, lon1); err != nil {
		return 0, err
	}
	if err := geo.ValidateCoordinates(lat2, lon2); err != nil {
		return 0, err
	}

	distance := geo.DistanceKm(lat1, lon1, lat2, lon2)
	minutes := math.Ceil(distance / AverageSpeedKmh(vehicle) * 60)
	return int(minutes) + HandlingBufferMinutes, nil
}
