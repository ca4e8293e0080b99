// Package memstore is an in-memory db.Store. Transactions are serialized and
// work on a copy of the tables that is only kept when the callback succeeds.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

type walletTxKey struct {
	walletID  int64
	reference string
	txType    db.WalletTransactionType
}

type tables struct {
	mu *sync.Mutex // nil inside a transaction

	pharmacies         map[int64]db.Pharmacy
	couriers           map[int64]db.Courier
	orders             map[int64]db.Order
	deliveries         map[int64]db.Delivery
	commissions        map[int64]db.Commission
	commissionLines    map[int64]db.CommissionLine
	wallets            map[int64]db.Wallet
	walletTransactions map[int64]db.WalletTransaction
	walletTxKeys       map[walletTxKey]struct{}
	settings           map[string]db.Setting
	payments           map[int64]db.Payment

	nextID int64
}

// Store implements db.Store.
type Store struct {
	*tables
}

var _ db.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	t := &tables{
		mu:                 &sync.Mutex{},
		pharmacies:         map[int64]db.Pharmacy{},
		couriers:           map[int64]db.Courier{},
		orders:             map[int64]db.Order{},
		deliveries:         map[int64]db.Delivery{},
		commissions:        map[int64]db.Commission{},
		commissionLines:    map[int64]db.CommissionLine{},
		wallets:            map[int64]db.Wallet{},
		walletTransactions: map[int64]db.WalletTransaction{},
		walletTxKeys:       map[walletTxKey]struct{}{},
		settings:           map[string]db.Setting{},
		payments:           map[int64]db.Payment{},
	}
	return &Store{tables: t}
}

func (s *Store) ExecTx(ctx context.Context, fn func(db.Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.tables.clone()
	if err := fn(snapshot); err != nil {
		return err
	}

	snapshot.mu = s.mu
	*s.tables = *snapshot
	return nil
}

func (t *tables) lock() func() {
	if t.mu == nil {
		return func() {}
	}
	t.mu.Lock()
	return t.mu.Unlock
}

func (t *tables) id() int64 {
	t.nextID++
	return t.nextID
}

func (t *tables) clone() *tables {
	c := &tables{
		pharmacies:         cloneMap(t.pharmacies),
		couriers:           cloneMap(t.couriers),
		orders:             cloneMap(t.orders),
		deliveries:         cloneMap(t.deliveries),
		commissions:        cloneMap(t.commissions),
		commissionLines:    cloneMap(t.commissionLines),
		wallets:            cloneMap(t.wallets),
		walletTransactions: cloneMap(t.walletTransactions),
		walletTxKeys:       cloneMap(t.walletTxKeys),
		settings:           cloneMap(t.settings),
		payments:           cloneMap(t.payments),
		nextID:             t.nextID,
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func sortedValues[V any](m map[int64]V) []V {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{
		Code:           db.UniqueViolationCode,
		ConstraintName: constraint,
		Message:        "duplicate key value violates unique constraint \"" + constraint + "\"",
	}
}

func now() time.Time {
	return time.Now().UTC()
}
