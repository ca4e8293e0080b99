package commission

import (
	"testing"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRoundsHalfAwayFromZero(t *testing.T) {
	rates := Rates{Platform: 0.10, Pharmacy: 0.85, Courier: 0.05}
	courierID := int64(9)

	shares := Split(12345, rates, 4, &courierID)
	require.Len(t, shares, 3)
	assert.EqualValues(t, 1235, shares[0].Amount)  // 1234.5
	assert.EqualValues(t, 10493, shares[1].Amount) // 10493.25
	assert.EqualValues(t, 617, shares[2].Amount)   // 617.25

	assert.Equal(t, db.PlatformActor(), shares[0].Actor)
	assert.Equal(t, db.PharmacyActor(4), shares[1].Actor)
	assert.Equal(t, db.CourierActor(9), shares[2].Actor)
}

func TestSplitRoundingTolerance(t *testing.T) {
	rates := ResolveRates(settings.DefaultTunables(), db.Pharmacy{})
	courierID := int64(1)

	for _, total := range []int64{0, 1, 7, 99, 999, 1005, 12345, 73333, 1_000_001} {
		shares := Split(total, rates, 2, &courierID)
		require.Len(t, shares, 3)

		var sum int64
		for _, s := range shares {
			sum += s.Amount
		}
		assert.InDelta(t, total, sum, float64(len(shares)), "total %d", total)
	}
}

func TestResolveRatesOverride(t *testing.T) {
	tunables := settings.DefaultTunables()

	assert.Equal(t, 0.85, ResolveRates(tunables, db.Pharmacy{}).Pharmacy)

	rates := ResolveRates(tunables, db.Pharmacy{CommissionRatePharmacy: util.Float64Pointer(0.90)})
	assert.Equal(t, 0.90, rates.Pharmacy)
	assert.Equal(t, 0.10, rates.Platform)
	assert.Equal(t, 0.05, rates.Courier)
}
