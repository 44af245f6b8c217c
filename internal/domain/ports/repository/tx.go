package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. The concrete type is infra-defined
// (pgx.Tx for Postgres); repositories accept nil for the non-transactional path.
type Tx interface{}

// NoTX is passed where no transaction is wanted, for readability at call sites.
var NoTX Tx

// TransactionManager runs fn inside a database transaction, handing the tx
// handle through so repository calls inside fn join the same transaction.
// Keeps use-case interfaces free of storage types.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
