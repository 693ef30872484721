package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must gracefully accept nil (the
// non-transactional path).
type Tx interface{}

// NoTx marks the non-transactional call path explicitly at call sites.
var NoTx Tx

// TransactionManager executes a function within a storage transaction,
// passing the transaction handle through to repositories. It keeps the
// use-case layer free of storage types while still letting one billing
// invocation apply all of its state changes atomically.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error

	// WithLock runs fn inside a transaction that holds an exclusive
	// per-key advisory lock for the duration of the transaction. It is how
	// one billing invocation gets all-or-nothing application of its state
	// changes without two invocations racing on the same subscription.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context, tx Tx) error) error
}
