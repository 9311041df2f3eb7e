// Package store defines the TransferProcessStore contract the
// scheduler consumes (spec §6) and ships a SQLite-backed
// implementation (pkg/store/sqlstore.go) grounded in the teacher's
// database access layer.
package store

import (
	"context"

	"github.com/connectorhq/transferproc/pkg/transfer"
)

// Store is the persistent repository of transfer processes the
// scheduler polls by state and mutates as it advances them.
type Store interface {
	// NextForState returns up to batchSize processes currently in the
	// given state. Duplicate returns across calls are tolerated: every
	// handler is idempotent with respect to its target state.
	NextForState(ctx context.Context, state transfer.State, batchSize int) ([]*transfer.TransferProcess, error)

	// Find returns the process with the given id, or nil if none exists.
	Find(ctx context.Context, id string) (*transfer.TransferProcess, error)

	// Create persists a new process. It must reject duplicates by id.
	Create(ctx context.Context, p *transfer.TransferProcess) error

	// Update persists the current state of an existing process.
	Update(ctx context.Context, p *transfer.TransferProcess) error

	// ProcessIdForTransferId returns the process id backing the given
	// transfer id (DataRequest.Id), or "" if none exists yet.
	ProcessIdForTransferId(ctx context.Context, transferId string) (string, error)

	// WithTransaction runs fn with a TransactionContext that scopes
	// Find/Update to a single atomic unit, for the read-modify-write
	// sequences async handler callbacks must perform (spec §5).
	WithTransaction(ctx context.Context, fn func(tx TransactionContext) error) error
}

// TransactionContext is the subset of Store available inside
// WithTransaction. It exists so handlers can write
//
//	store.WithTransaction(ctx, func(tx TransactionContext) error {
//	    p, err := tx.Find(id)
//	    ...
//	    return tx.Update(p)
//	})
//
// and get atomicity against concurrent ticks without the scheduler
// itself needing to know anything about the underlying persistence
// technology.
type TransactionContext interface {
	Find(id string) (*transfer.TransferProcess, error)
	Update(p *transfer.TransferProcess) error
}

// ErrDuplicateProcess is returned by Create when a process with the
// same id already exists.
type ErrDuplicateProcess struct {
	Id string
}

func (e *ErrDuplicateProcess) Error() string {
	return "transfer process already exists: " + e.Id
}
