package commission

import (
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/shopspring/decimal"
)

// Share is one beneficiary's part of an order total.
type Share struct {
	Actor  db.ActorRef `json:"actor"`
	Rate   float64     `json:"rate"`
	Amount int64       `json:"amount"`
}

// Rates are the fractions of the order total paid to each actor.
type Rates struct {
	Platform float64 `json:"platform"`
	Pharmacy float64 `json:"pharmacy"`
	Courier  float64 `json:"courier"`
}

// ResolveRates takes the global rates and lets the pharmacy's own rate win when it has one.
func ResolveRates(t settings.Tunables, pharmacy db.Pharmacy) Rates {
	rates := Rates{
		Platform: t.CommissionRatePlatform,
		Pharmacy: t.CommissionRatePharmacy,
		Courier:  t.CommissionRateCourier,
	}
	if pharmacy.CommissionRatePharmacy != nil {
		rates.Pharmacy = *pharmacy.CommissionRatePharmacy
	}
	return rates
}

// Split computes each share of total. Every amount is rounded half away from zero on its own,
// so the shares may differ from total by up to one unit per share. The courier share is
// left out when no courier delivered the order.
func Split(total int64, rates Rates, pharmacyID int64, courierID *int64) []Share {
	shares := []Share{
		share(total, db.PlatformActor(), rates.Platform),
		share(total, db.PharmacyActor(pharmacyID), rates.Pharmacy),
	}
	if courierID != nil {
		shares = append(shares, share(total, db.CourierActor(*courierID), rates.Courier))
	}
	return shares
}

func share(total int64, actor db.ActorRef, rate float64) Share {
	amount := decimal.NewFromInt(total).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
	return Share{Actor: actor, Rate: rate, Amount: amount}
}
