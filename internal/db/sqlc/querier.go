package db

import (
	"context"
	"time"
)

type Querier interface {
	AddWalletBalance(ctx context.Context, arg AddWalletBalanceParams) (Wallet, error)
	ClaimCourier(ctx context.Context, id int64) (Courier, error)
	CreateCommission(ctx context.Context, arg CreateCommissionParams) (Commission, error)
	CreateCommissionLine(ctx context.Context, arg CreateCommissionLineParams) (CommissionLine, error)
	CreateCourier(ctx context.Context, arg CreateCourierParams) (Courier, error)
	CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (Delivery, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error)
	CreatePharmacy(ctx context.Context, arg CreatePharmacyParams) (Pharmacy, error)
	CreateWallet(ctx context.Context, arg CreateWalletParams) (Wallet, error)
	CreateWalletTransaction(ctx context.Context, arg CreateWalletTransactionParams) (WalletTransaction, error)
	GetCommissionByOrderID(ctx context.Context, orderID int64) (Commission, error)
	GetCourier(ctx context.Context, id int64) (Courier, error)
	GetDelivery(ctx context.Context, id int64) (Delivery, error)
	GetDeliveryByOrderID(ctx context.Context, orderID int64) (Delivery, error)
	GetDeliveryForUpdate(ctx context.Context, id int64) (Delivery, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	GetPaymentByReference(ctx context.Context, reference string) (Payment, error)
	GetPaymentByReferenceForUpdate(ctx context.Context, reference string) (Payment, error)
	GetPharmacy(ctx context.Context, id int64) (Pharmacy, error)
	GetSetting(ctx context.Context, key string) (Setting, error)
	GetWalletByOwner(ctx context.Context, owner ActorRef) (Wallet, error)
	GetWalletByOwnerForUpdate(ctx context.Context, owner ActorRef) (Wallet, error)
	IncrementCourierDeliveries(ctx context.Context, id int64) error
	ListAvailableCouriers(ctx context.Context, locatedSince time.Time) ([]Courier, error)
	ListCommissionLines(ctx context.Context, commissionID int64) ([]CommissionLine, error)
	ListPendingUnassignedDeliveries(ctx context.Context) ([]Delivery, error)
	ListSettings(ctx context.Context) ([]Setting, error)
	ListStalePendingPayments(ctx context.Context, createdBefore time.Time) ([]Payment, error)
	ListTimedOutWaitingDeliveries(ctx context.Context, startedBefore time.Time) ([]Delivery, error)
	ListWaitingDeliveries(ctx context.Context) ([]Delivery, error)
	ListWalletTransactions(ctx context.Context, walletID int64) ([]WalletTransaction, error)
	RaiseWaitingFee(ctx context.Context, arg RaiseWaitingFeeParams) (int64, error)
	ReleaseCourier(ctx context.Context, id int64) (int64, error)
	UpdateCourierLocation(ctx context.Context, arg UpdateCourierLocationParams) (Courier, error)
	UpdateCourierStatus(ctx context.Context, arg UpdateCourierStatusParams) (Courier, error)
	UpdateDelivery(ctx context.Context, arg UpdateDeliveryParams) (Delivery, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
	UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error)
	UpsertSetting(ctx context.Context, arg UpsertSettingParams) (Setting, error)
}

var _ Querier = (*Queries)(nil)
