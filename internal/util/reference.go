package util

import (
	"fmt"

	"github.com/lithammer/shortuuid/v4"
)

const (
	alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// GenerateTrackingCode generates a delivery tracking code in the format "DLV-XXXXXXXXXX".
func GenerateTrackingCode() string {
	return fmt.Sprintf("DLV-%s", shortuuid.NewWithAlphabet(alphabet)[:10])
}

// GenerateOrderReference generates an order reference in the format "ORD-XXXXXXXXXX".
func GenerateOrderReference() string {
	return fmt.Sprintf("ORD-%s", shortuuid.NewWithAlphabet(alphabet)[:10])
}
