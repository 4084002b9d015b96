package persistence

import (
	"context"

	"github.com/debtflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// txContextKey carries the transaction handle through the context so every
// repository call inside an InTransaction block runs on the same transaction.
type txContextKey struct{}

func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// txFromContext returns the transaction bound to ctx, or nil outside one
func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}

// GormTransactionManager implements shared.TransactionManager on the gorm
// connection. Repositories pick the transaction up from the context, so the
// write set of a retract-then-reapply commits or rolls back as one unit.
type GormTransactionManager struct {
	db *Database
}

// NewGormTransactionManager creates a transaction manager over the database
func NewGormTransactionManager(db *Database) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// InTransaction runs fn inside a transaction, rolling back when fn returns
// an error. A call already inside a transaction joins it.
func (m *GormTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

var _ shared.TransactionManager = (*GormTransactionManager)(nil)
