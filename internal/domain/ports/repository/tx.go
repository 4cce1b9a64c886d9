// File: internal/domain/ports/repository/tx.go
package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres); repositories
// accept nil for the non-transactional path.
type Tx interface{}

// NoTX marks intentionally non-transactional calls at call sites.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the transaction handle via tx. Keeping the handle opaque stops
// storage types from leaking into use-case interfaces while still letting
// repositories take row locks inside the same transaction.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
	// LockKey serializes concurrent work on one logical entity (an advisory
	// xact lock in Postgres). The lock is held until the transaction ends.
	LockKey(ctx context.Context, tx Tx, key string) error
}
