// Package wallet moves money between actor wallets. Every balance change
// appends a wallet transaction in the same database transaction.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

var (
	ErrDuplicateReference  = errors.New("wallet transaction reference already used")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Entry describes the ledger line written alongside a balance change.
type Entry struct {
	Reference   string
	Description string
	Metadata    map[string]interface{}
}

type Ledger struct {
	currency string
}

func NewLedger(currency string) *Ledger {
	return &Ledger{currency: currency}
}

// Credit adds amount to the owner's wallet, creating the wallet on first use.
// q must be the transaction the caller runs in.
func (l *Ledger) Credit(ctx context.Context, q db.Querier, owner db.ActorRef, amount int64, entry Entry) (db.WalletTransaction, error) {
	return l.apply(ctx, q, owner, amount, db.WalletTransactionTypeCredit, entry)
}

// Debit removes amount from the owner's wallet. The balance never goes negative.
func (l *Ledger) Debit(ctx context.Context, q db.Querier, owner db.ActorRef, amount int64, entry Entry) (db.WalletTransaction, error) {
	return l.apply(ctx, q, owner, amount, db.WalletTransactionTypeDebit, entry)
}

func (l *Ledger) apply(ctx context.Context, q db.Querier, owner db.ActorRef, amount int64, txType db.WalletTransactionType, entry Entry) (db.WalletTransaction, error) {
	if amount <= 0 {
		return db.WalletTransaction{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	// 1. Lock the wallet row, creating it if needed
	wallet, err := l.walletForUpdate(ctx, q, owner)
	if err != nil {
		return db.WalletTransaction{}, err
	}

	delta := amount
	if txType == db.WalletTransactionTypeDebit {
		if wallet.Balance < amount {
			return db.WalletTransaction{}, fmt.Errorf("%w: available %d, needed %d", ErrInsufficientBalance, wallet.Balance, amount)
		}
		delta = -amount
	}

	var metadata []byte
	if entry.Metadata != nil {
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return db.WalletTransaction{}, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	// 2. Append the ledger line; the unique reference guards against double application
	walletTx, err := q.CreateWalletTransaction(ctx, db.CreateWalletTransactionParams{
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        txType,
		Reference:   entry.Reference,
		Description: entry.Description,
		Metadata:    metadata,
	})
	if err != nil {
		if db.IsUniqueViolation(err, db.UniqueWalletTransactionConstraint) {
			return db.WalletTransaction{}, fmt.Errorf("%w: %s on %s", ErrDuplicateReference, entry.Reference, owner)
		}
		return db.WalletTransaction{}, fmt.Errorf("failed to create wallet transaction: %w", err)
	}

	// 3. Move the balance
	if _, err = q.AddWalletBalance(ctx, db.AddWalletBalanceParams{
		ID:     wallet.ID,
		Amount: delta,
	}); err != nil {
		return db.WalletTransaction{}, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	return walletTx, nil
}

func (l *Ledger) walletForUpdate(ctx context.Context, q db.Querier, owner db.ActorRef) (db.Wallet, error) {
	wallet, err := q.GetWalletByOwnerForUpdate(ctx, owner)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, db.ErrRecordNotFound) {
		return db.Wallet{}, fmt.Errorf("failed to get wallet of %s: %w", owner, err)
	}

	_, err = q.CreateWallet(ctx, db.CreateWalletParams{
		Owner:    owner,
		Currency: l.currency,
	})
	if err != nil && !errors.Is(err, db.ErrRecordNotFound) {
		return db.Wallet{}, fmt.Errorf("failed to create wallet of %s: %w", owner, err)
	}

	wallet, err = q.GetWalletByOwnerForUpdate(ctx, owner)
	if err != nil {
		return db.Wallet{}, fmt.Errorf("failed to get wallet of %s: %w", owner, err)
	}
	return wallet, nil
}
