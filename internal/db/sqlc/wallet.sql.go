package db

import (
	"context"
)

const walletColumns = `id, owner_type, owner_id, balance, currency, created_at, updated_at`

func scanWallet(row scanner) (Wallet, error) {
	var i Wallet
	err := row.Scan(
		&i.ID,
		&i.OwnerType,
		&i.OwnerID,
		&i.Balance,
		&i.Currency,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getWalletByOwner = `-- name: GetWalletByOwner :one
SELECT ` + walletColumns + ` FROM wallets
WHERE owner_type = $1 AND COALESCE(owner_id, 0) = COALESCE($2::bigint, 0)`

func (q *Queries) GetWalletByOwner(ctx context.Context, owner ActorRef) (Wallet, error) {
	row := q.db.QueryRow(ctx, getWalletByOwner, owner.Type, owner.OwnerID())
	return scanWallet(row)
}

const getWalletByOwnerForUpdate = `-- name: GetWalletByOwnerForUpdate :one
SELECT ` + walletColumns + ` FROM wallets
WHERE owner_type = $1 AND COALESCE(owner_id, 0) = COALESCE($2::bigint, 0)
FOR UPDATE`

func (q *Queries) GetWalletByOwnerForUpdate(ctx context.Context, owner ActorRef) (Wallet, error) {
	row := q.db.QueryRow(ctx, getWalletByOwnerForUpdate, owner.Type, owner.OwnerID())
	return scanWallet(row)
}

const createWallet = `-- name: CreateWallet :one
INSERT INTO wallets (owner_type, owner_id, balance, currency)
VALUES ($1, $2, 0, $3)
ON CONFLICT (owner_type, (COALESCE(owner_id, 0))) DO NOTHING
RETURNING ` + walletColumns

type CreateWalletParams struct {
	Owner    ActorRef `json:"owner"`
	Currency string   `json:"currency"`
}

// CreateWallet returns ErrRecordNotFound when the owner already has a wallet.
func (q *Queries) CreateWallet(ctx context.Context, arg CreateWalletParams) (Wallet, error) {
	row := q.db.QueryRow(ctx, createWallet, arg.Owner.Type, arg.Owner.OwnerID(), arg.Currency)
	return scanWallet(row)
}

const addWalletBalance = `-- name: AddWalletBalance :one
UPDATE wallets
SET balance = balance + $2, updated_at = now()
WHERE id = $1
RETURNING ` + walletColumns

type AddWalletBalanceParams struct {
	ID     int64 `json:"id"`
	Amount int64 `json:"amount"`
}

func (q *Queries) AddWalletBalance(ctx context.Context, arg AddWalletBalanceParams) (Wallet, error) {
	row := q.db.QueryRow(ctx, addWalletBalance, arg.ID, arg.Amount)
	return scanWallet(row)
}

const createWalletTransaction = `-- name: CreateWalletTransaction :one
INSERT INTO wallet_transactions (wallet_id, amount, type, reference, description, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, wallet_id, amount, type, reference, description, metadata, created_at`

type CreateWalletTransactionParams struct {
	WalletID    int64                 `json:"wallet_id"`
	Amount      int64                 `json:"amount"`
	Type        WalletTransactionType `json:"type"`
	Reference   string                `json:"reference"`
	Description string                `json:"description"`
	Metadata    []byte                `json:"metadata"`
}

func (q *Queries) CreateWalletTransaction(ctx context.Context, arg CreateWalletTransactionParams) (WalletTransaction, error) {
	row := q.db.QueryRow(ctx, createWalletTransaction,
		arg.WalletID,
		arg.Amount,
		arg.Type,
		arg.Reference,
		arg.Description,
		arg.Metadata,
	)
	var i WalletTransaction
	err := row.Scan(
		&i.ID,
		&i.WalletID,
		&i.Amount,
		&i.Type,
		&i.Reference,
		&i.Description,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const listWalletTransactions = `-- name: ListWalletTransactions :many
SELECT id, wallet_id, amount, type, reference, description, metadata, created_at FROM wallet_transactions
WHERE wallet_id = $1
ORDER BY id DESC`

func (q *Queries) ListWalletTransactions(ctx context.Context, walletID int64) ([]WalletTransaction, error) {
	rows, err := q.db.Query(ctx, listWalletTransactions, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []WalletTransaction{}
	for rows.Next() {
		var i WalletTransaction
		if err := rows.Scan(
			&i.ID,
			&i.WalletID,
			&i.Amount,
			&i.Type,
			&i.Reference,
			&i.Description,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
