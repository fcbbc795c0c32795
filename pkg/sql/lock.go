package sql

import (
	"context"
	"fmt"
	"hash/fnv"
)

func withSessionLevelLock(ctx context.Context, name string, db Database) (connCtx context.Context, release func() error, err error) {
	lockID := LockID(name)

	ctx, releaseConn, err := db.WithinSingleConnection(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get connection for %s: %w", name, err)
	}

	_, err = db.ExecContext(ctx, "select pg_advisory_lock($1)", lockID)
	if err != nil {
		releaseConn()
		return nil, nil, fmt.Errorf("get lock for %s: %w", name, err)
	}

	return ctx, func() error {
		defer releaseConn()

		var released bool
		err := db.GetContext(ctx, &released, "select pg_advisory_unlock($1)", lockID)
		if err != nil {
			return fmt.Errorf("release lock for %s: %w", name, err)
		}
		if !released {
			return fmt.Errorf("release lock for %s: lock wasn't released", name)
		}

		return nil
	}, nil
}

func withTransactionLevelLock(ctx context.Context, name string, tx Client) error {
	_, err := tx.ExecContext(ctx, "select pg_advisory_xact_lock($1)", LockID(name))
	if err != nil {
		return fmt.Errorf("get lock for %s: %w", name, err)
	}

	return nil
}

// LockID maps a lock name to the postgres advisory lock key.
func LockID(name string) int64 {
	hash := fnv.New64a()
	_, _ = hash.Write([]byte(name))
	return int64(hash.Sum64())
}
