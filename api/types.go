package api

import (
	"github.com/pharmago/dispatch/internal/commission"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/util"
)

// assignmentResponse carries the outcome of an assignment attempt.
// Assigned is false when no courier was available, which is not an error.
type assignmentResponse struct {
	Assigned bool         `json:"assigned"`
	Delivery *db.Delivery `json:"delivery,omitempty"`
	Courier  *db.Courier  `json:"courier,omitempty"`
}

type deliveryResponse struct {
	db.Delivery
	WaitingFeeDisplay string `json:"waiting_fee_display"`
}

func newDeliveryResponse(delivery db.Delivery, currency string) deliveryResponse {
	return deliveryResponse{
		Delivery:          delivery,
		WaitingFeeDisplay: util.FormatMoney(delivery.WaitingFee, currency),
	}
}

type commissionResponse struct {
	Commission   db.Commission       `json:"commission"`
	Lines        []db.CommissionLine `json:"lines"`
	TotalDisplay string              `json:"total_display"`
}

func newCommissionResponse(result commission.Result, currency string) commissionResponse {
	return commissionResponse{
		Commission:   result.Commission,
		Lines:        result.Lines,
		TotalDisplay: util.FormatMoney(result.Commission.TotalAmount, currency),
	}
}

type walletResponse struct {
	db.Wallet
	BalanceDisplay string `json:"balance_display"`
}

type estimateResponse struct {
	DistanceKm float64        `json:"distance_km"`
	Minutes    int            `json:"minutes"`
	Vehicle    db.VehicleType `json:"vehicle"`
}
