package repositories

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs fn inside a transaction boundary. Repositories called with
// the context passed to fn take part in the same transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// GORMTxManager opens a gorm transaction and stores it in the context.
type GORMTxManager struct {
	db *gorm.DB
}

// NewGORMTxManager creates a new instance of GORMTxManager.
func NewGORMTxManager(db *gorm.DB) *GORMTxManager {
	return &GORMTxManager{db: db}
}

// WithTransaction commits when fn returns nil and rolls back otherwise.
func (m *GORMTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		// already inside a transaction
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db scoped to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// MemoryTxManager runs fn directly. Every in-memory repository operation is
// atomic on its own and the only conditional write in the order flow
// (DecrementQuantity) happens before the order insert, which cannot fail.
type MemoryTxManager struct{}

// NewMemoryTxManager creates a new instance of MemoryTxManager.
func NewMemoryTxManager() *MemoryTxManager {
	return &MemoryTxManager{}
}

func (MemoryTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
