//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Transaction=Transaction"
package persistence

import "context"

type Transaction interface {
	// WithinContext runs fn in a transaction stored in the ctx, nested calls join the outer transaction.
	// Lock names are taken as transaction scoped advisory locks.
	WithinContext(ctx context.Context, fn func(ctx context.Context) error, lockNames ...string) error
}
