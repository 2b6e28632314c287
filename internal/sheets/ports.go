// Package sheets defines the outbound port for exporting ledger rows to
// a spreadsheet.
package sheets

import (
	"context"

	"tally/internal/core"
)

// TransactionAppender writes one ledger transaction to the export target
// and returns an adapter-specific row reference.
type TransactionAppender interface {
	Append(ctx context.Context, kind core.Kind, t core.Transaction) (rowRef string, err error)
}
