package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// GormTxManager implements shared.TxManager. The open transaction travels
// in the context; repositories pick it up through conn.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new GormTxManager
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// RunInTransaction runs fn in a transaction. When ctx already carries a
// transaction, fn runs in a savepoint of it.
func (m *GormTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, m.db, func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// withTx begins a transaction, or a savepoint when ctx is already inside one
func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return conn(ctx, db).Transaction(fn)
}

// conn returns the transaction carried by ctx, or db bound to ctx
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
