package delivery

import "errors"

var (
	ErrInvalidTransition  = errors.New("invalid delivery status transition")
	ErrNotAssignedCourier = errors.New("courier is not assigned to this delivery")
	ErrNotWaiting         = errors.New("delivery is not waiting for the customer")
	ErrOrderNotReady      = errors.New("order cannot be prepared for delivery")
)
