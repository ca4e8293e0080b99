package delivery

import (
	"math"
	"time"

	"github.com/pharmago/dispatch/internal/settings"
)

// WaitingFee charges every whole minute past the free allowance.
func WaitingFee(startedAt, now time.Time, t settings.Tunables) int64 {
	minutes := int64(math.Floor(now.Sub(startedAt).Minutes()))
	billable := max(0, minutes-t.WaitingFreeMinutes)
	return billable * t.WaitingFeePerMinute
}

// TimedOut reports whether the waiting timer has run for at least the configured timeout.
func TimedOut(startedAt, now time.Time, t settings.Tunables) bool {
	return !startedAt.After(now.Add(-t.WaitingTimeout()))
}
