package sql

import (
	"context"
	"errors"
	"fmt"

	"github.com/klwxsrx/event-booking/pkg/persistence"
)

var errUnsupportedDatabase = errors.New("unsupported database implementation")

type transaction struct {
	db       *database
	onCommit []func(context.Context)
}

// NewTransaction returns the unit of work over db. Nested calls join the outer transaction,
// onCommit callbacks run after the outermost commit only.
func NewTransaction(db Database, onCommit ...func(context.Context)) persistence.Transaction {
	impl, _ := db.(*database)
	return &transaction{db: impl, onCommit: onCommit}
}

func (t *transaction) WithinContext(
	ctx context.Context,
	fn func(ctx context.Context) error,
	lockNames ...string,
) (err error) {
	if t.db == nil {
		return errUnsupportedDatabase
	}

	storedTx, ok := ctx.Value(dbTransactionContextKey).(txData)
	hasParentTx := ok && storedTx.db == t.db
	if !hasParentTx {
		var tx ClientTx
		tx, err = t.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("start db transaction: %w", err)
		}

		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		storedTx = txData{ClientTx: tx, db: t.db}
		txCtx := context.WithValue(ctx, dbTransactionContextKey, storedTx)

		err = t.execute(txCtx, storedTx, fn, lockNames)
		if err != nil {
			return err
		}

		err = tx.Commit()
		if err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		committed = true

		for _, callback := range t.onCommit {
			callback(ctx)
		}
		return nil
	}

	return t.execute(ctx, storedTx, fn, lockNames)
}

func (t *transaction) execute(
	ctx context.Context,
	tx txData,
	fn func(ctx context.Context) error,
	lockNames []string,
) error {
	for _, lockName := range lockNames {
		err := withTransactionLevelLock(ctx, lockName, tx)
		if err != nil {
			return err
		}
	}

	return fn(ctx)
}
