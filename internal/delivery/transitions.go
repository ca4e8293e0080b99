package delivery

import (
	"fmt"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

// transitions lists the statuses each status may move to. Terminal statuses have no entry.
var transitions = map[db.DeliveryStatus][]db.DeliveryStatus{
	db.DeliveryStatusPending:   {db.DeliveryStatusAssigned, db.DeliveryStatusCancelled},
	db.DeliveryStatusAssigned:  {db.DeliveryStatusAccepted, db.DeliveryStatusPending, db.DeliveryStatusCancelled},
	db.DeliveryStatusAccepted:  {db.DeliveryStatusPickedUp, db.DeliveryStatusPending, db.DeliveryStatusCancelled},
	db.DeliveryStatusPickedUp:  {db.DeliveryStatusInTransit, db.DeliveryStatusCancelled},
	db.DeliveryStatusInTransit: {db.DeliveryStatusDelivered, db.DeliveryStatusCancelled},
}

// CanTransition reports whether a delivery may move from one status to another.
func CanTransition(from, to db.DeliveryStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(d db.Delivery, to db.DeliveryStatus) error {
	if !CanTransition(d.Status, to) {
		return fmt.Errorf("%w: delivery %d cannot go from %s to %s", ErrInvalidTransition, d.ID, d.Status, to)
	}
	return nil
}

func checkCourier(d db.Delivery, courierID int64) error {
	if d.CourierID == nil || *d.CourierID != courierID {
		return fmt.Errorf("%w: delivery %d, courier %d", ErrNotAssignedCourier, d.ID, courierID)
	}
	return nil
}
