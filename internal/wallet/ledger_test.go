package wallet

import (
	"context"
	"testing"

	"github.com/pharmago/dispatch/internal/db/memstore"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/stretchr/testify/require"
)

func TestCreditCreatesWalletLazily(t *testing.T) {
	store := memstore.New()
	ledger := NewLedger("XOF")
	ctx := context.Background()
	owner := db.PharmacyActor(4)

	_, err := store.GetWalletByOwner(ctx, owner)
	require.ErrorIs(t, err, db.ErrRecordNotFound)

	err = store.ExecTx(ctx, func(q db.Querier) error {
		walletTx, err := ledger.Credit(ctx, q, owner, 8500, Entry{
			Reference:   "COMMISSION-1",
			Description: "Commission for order ORD-1",
			Metadata:    map[string]interface{}{"order_id": 1},
		})
		require.Equal(t, db.WalletTransactionTypeCredit, walletTx.Type)
		return err
	})
	require.NoError(t, err)

	wallet, err := store.GetWalletByOwner(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 8500, wallet.Balance)
	require.Equal(t, "XOF", wallet.Currency)

	txs, err := store.ListWalletTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.JSONEq(t, `{"order_id":1}`, string(txs[0].Metadata))
}

func TestDuplicateReferenceIsRejected(t *testing.T) {
	store := memstore.New()
	ledger := NewLedger("XOF")
	ctx := context.Background()

	credit := func() error {
		return store.ExecTx(ctx, func(q db.Querier) error {
			_, err := ledger.Credit(ctx, q, db.PlatformActor(), 1000, Entry{Reference: "COMMISSION-9"})
			return err
		})
	}
	require.NoError(t, credit())
	require.ErrorIs(t, credit(), ErrDuplicateReference)

	wallet, err := store.GetWalletByOwner(ctx, db.PlatformActor())
	require.NoError(t, err)
	require.EqualValues(t, 1000, wallet.Balance)
}

func TestDebit(t *testing.T) {
	store := memstore.New()
	ledger := NewLedger("XOF")
	ctx := context.Background()
	owner := db.CourierActor(2)

	err := store.ExecTx(ctx, func(q db.Querier) error {
		if _, err := ledger.Credit(ctx, q, owner, 500, Entry{Reference: "COMMISSION-1"}); err != nil {
			return err
		}
		_, err := ledger.Debit(ctx, q, owner, 200, Entry{Reference: "PAYOUT-1"})
		return err
	})
	require.NoError(t, err)

	err = store.ExecTx(ctx, func(q db.Querier) error {
		_, err := ledger.Debit(ctx, q, owner, 301, Entry{Reference: "PAYOUT-2"})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	wallet, err := store.GetWalletByOwner(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 300, wallet.Balance)
}

func TestInvalidAmount(t *testing.T) {
	store := memstore.New()
	ledger := NewLedger("XOF")
	ctx := context.Background()

	_, err := ledger.Credit(ctx, store, db.PlatformActor(), 0, Entry{Reference: "X"})
	require.ErrorIs(t, err, ErrInvalidAmount)
}
