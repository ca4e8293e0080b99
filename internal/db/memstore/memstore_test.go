package memstore

import (
	"context"
	"errors"
	"testing"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/stretchr/testify/require"
)

func TestExecTxRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()

	pharmacy, err := store.CreatePharmacy(ctx, db.CreatePharmacyParams{Name: "Pharmacie du Plateau"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.ExecTx(ctx, func(q db.Querier) error {
		_, err := q.CreateOrder(ctx, db.CreateOrderParams{
			Reference:  "ORD-1",
			PharmacyID: pharmacy.ID,
			Status:     db.OrderStatusPending,
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetOrder(ctx, pharmacy.ID+1)
	require.ErrorIs(t, err, db.ErrRecordNotFound)
}

func TestExecTxCommits(t *testing.T) {
	store := New()
	ctx := context.Background()

	var orderID int64
	err := store.ExecTx(ctx, func(q db.Querier) error {
		order, err := q.CreateOrder(ctx, db.CreateOrderParams{Reference: "ORD-2", Status: db.OrderStatusPending})
		orderID = order.ID
		return err
	})
	require.NoError(t, err)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, "ORD-2", order.Reference)
}

func TestUniqueViolations(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.CreateCommission(ctx, db.CreateCommissionParams{OrderID: 7, TotalAmount: 1000})
	require.NoError(t, err)
	_, err = store.CreateCommission(ctx, db.CreateCommissionParams{OrderID: 7, TotalAmount: 1000})
	require.True(t, db.IsUniqueViolation(err, db.UniqueCommissionOrderConstraint))

	_, err = store.CreateWallet(ctx, db.CreateWalletParams{Owner: db.PlatformActor(), Currency: "XOF"})
	require.NoError(t, err)
	_, err = store.CreateWallet(ctx, db.CreateWalletParams{Owner: db.PlatformActor(), Currency: "XOF"})
	require.ErrorIs(t, err, db.ErrRecordNotFound)

	_, err = store.CreateWallet(ctx, db.CreateWalletParams{Owner: db.PharmacyActor(1), Currency: "XOF"})
	require.NoError(t, err)
	_, err = store.CreateWallet(ctx, db.CreateWalletParams{Owner: db.CourierActor(1), Currency: "XOF"})
	require.NoError(t, err)
}

func TestClaimCourierIsConditional(t *testing.T) {
	store := New()
	ctx := context.Background()

	courier, err := store.CreateCourier(ctx, db.CreateCourierParams{UserID: 1, Status: db.CourierStatusAvailable})
	require.NoError(t, err)

	claimed, err := store.ClaimCourier(ctx, courier.ID)
	require.NoError(t, err)
	require.Equal(t, db.CourierStatusBusy, claimed.Status)

	_, err = store.ClaimCourier(ctx, courier.ID)
	require.ErrorIs(t, err, db.ErrRecordNotFound)

	n, err := store.ReleaseCourier(ctx, courier.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = store.ReleaseCourier(ctx, courier.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}
