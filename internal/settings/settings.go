// Package settings reads and writes the runtime tunables stored in the settings table.
package settings

import (
	"context"
	"fmt"
	"math"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

const (
	KeyWaitingTimeoutMinutes           = "waiting_timeout_minutes"
	KeyWaitingFeePerMinute             = "waiting_fee_per_minute"
	KeyWaitingFreeMinutes              = "waiting_free_minutes"
	KeySearchRadiusKm                  = "search_radius_km"
	KeyCourierLocationFreshnessMinutes = "courier_location_freshness_minutes"
	KeyCommissionRatePlatform          = "commission_rate_platform"
	KeyCommissionRatePharmacy          = "commission_rate_pharmacy"
	KeyCommissionRateCourier           = "commission_rate_courier"
	KeyPaymentPendingTimeoutMinutes    = "payment_pending_timeout_minutes"
)

// Definition is the type and the allowed range of a known setting.
type Definition struct {
	Type         db.SettingType
	Min          float64
	Max          float64
	MinExclusive bool
}

var unbounded = math.Inf(1)

// Definitions lists every key the engines read. Other keys are stored as given.
var Definitions = map[string]Definition{
	KeyWaitingTimeoutMinutes:           {Type: db.SettingTypeInt, Min: 0, Max: unbounded},
	KeyWaitingFeePerMinute:             {Type: db.SettingTypeInt, Min: 0, Max: unbounded},
	KeyWaitingFreeMinutes:              {Type: db.SettingTypeInt, Min: 0, Max: unbounded},
	KeySearchRadiusKm:                  {Type: db.SettingTypeFloat, Min: 0, Max: unbounded, MinExclusive: true},
	KeyCourierLocationFreshnessMinutes: {Type: db.SettingTypeInt, Min: 0, Max: unbounded, MinExclusive: true},
	KeyCommissionRatePlatform:          {Type: db.SettingTypeFloat, Min: 0, Max: 1},
	KeyCommissionRatePharmacy:          {Type: db.SettingTypeFloat, Min: 0, Max: 1},
	KeyCommissionRateCourier:           {Type: db.SettingTypeFloat, Min: 0, Max: 1},
	KeyPaymentPendingTimeoutMinutes:    {Type: db.SettingTypeInt, Min: 0, Max: unbounded},
}

// CheckRange reports whether v lies in the allowed range.
func (d Definition) CheckRange(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%v is not a finite number", v)
	}
	if d.MinExclusive && v <= d.Min {
		return fmt.Errorf("must be greater than %v", d.Min)
	}
	if v < d.Min {
		return fmt.Errorf("must be at least %v", d.Min)
	}
	if v > d.Max {
		return fmt.Errorf("must be at most %v", d.Max)
	}
	return nil
}

// Tunables is one consistent snapshot of every setting the engines read.
type Tunables struct {
	WaitingTimeoutMinutes           int64   `json:"waiting_timeout_minutes"`
	WaitingFeePerMinute             int64   `json:"waiting_fee_per_minute"`
	WaitingFreeMinutes              int64   `json:"waiting_free_minutes"`
	SearchRadiusKm                  float64 `json:"search_radius_km"`
	CourierLocationFreshnessMinutes int64   `json:"courier_location_freshness_minutes"`
	CommissionRatePlatform          float64 `json:"commission_rate_platform"`
	CommissionRatePharmacy          float64 `json:"commission_rate_pharmacy"`
	CommissionRateCourier           float64 `json:"commission_rate_courier"`
	PaymentPendingTimeoutMinutes    int64   `json:"payment_pending_timeout_minutes"`
}

func DefaultTunables() Tunables {
	return Tunables{
		WaitingTimeoutMinutes:           10,
		WaitingFeePerMinute:             100,
		WaitingFreeMinutes:              5,
		SearchRadiusKm:                  20,
		CourierLocationFreshnessMinutes: 30,
		CommissionRatePlatform:          0.10,
		CommissionRatePharmacy:          0.85,
		CommissionRateCourier:           0.05,
		PaymentPendingTimeoutMinutes:    5,
	}
}

func (t Tunables) WaitingTimeout() time.Duration {
	return time.Duration(t.WaitingTimeoutMinutes) * time.Minute
}

func (t Tunables) LocationFreshness() time.Duration {
	return time.Duration(t.CourierLocationFreshnessMinutes) * time.Minute
}

func (t Tunables) PaymentPendingTimeout() time.Duration {
	return time.Duration(t.PaymentPendingTimeoutMinutes) * time.Minute
}

// Provider hands out a snapshot of the tunables. Engines read it once per operation.
type Provider interface {
	Tunables(ctx context.Context) (Tunables, error)
}

// Static is a fixed Provider.
type Static Tunables

func (s Static) Tunables(ctx context.Context) (Tunables, error) {
	return Tunables(s), nil
}
