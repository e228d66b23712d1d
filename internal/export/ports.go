// Package export defines ports for mirroring ledger rows to external
// destinations.
package export

import (
	"context"

	"till/internal/core"
)

// TransactionWriter appends a ledger transaction to an external destination.
// Implementations return a destination-specific reference for the row.
type TransactionWriter interface {
	AppendTransaction(ctx context.Context, t core.LedgerTransaction) (string, error)
}
