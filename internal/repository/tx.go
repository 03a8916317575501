package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PgTxManager implements TxManager over a pgx connection pool.
type PgTxManager struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgTxManager creates a transaction manager bound to pool.
func NewPgTxManager(pool *pgxpool.Pool, logger *zap.Logger) *PgTxManager {
	return &PgTxManager{pool: pool, logger: logger.Named("TxManager")}
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (m *PgTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				m.logger.Error("Failed to rollback transaction after panic", zap.Error(rbErr), zap.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			m.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
