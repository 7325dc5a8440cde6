package ledger

import (
	"context"

	"github.com/marshallshelly/pebble-ledger/internal/models"
)

const (
	// DefaultPageLimit applies when a Page has no limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps a Page's limit.
	MaxPageLimit = 100
)

// Page selects a window of a transfer history. An empty Status matches
// every status.
type Page struct {
	Limit  int
	Offset int
	Status models.TransferStatus
}

// Normalize applies the default and maximum limit and clamps negative offsets.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	p.Limit = min(p.Limit, MaxPageLimit)
	p.Offset = max(p.Offset, 0)
	return p
}

// Store is the persistence a Service needs.
type Store interface {
	// WithinTx runs fn as one atomic unit of work: everything fn wrote is
	// kept when it returns nil and discarded when it returns an error.
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error

	// AccountExists reports whether the account exists.
	AccountExists(ctx context.Context, id int64) (bool, error)

	// TransferByID returns ErrNotFound when no transfer has id.
	TransferByID(ctx context.Context, id int64) (*models.Transfer, error)

	// TransfersByAccount lists transfers sent or received by the account, newest first.
	TransfersByAccount(ctx context.Context, accountID int64, page Page) ([]models.Transfer, error)
}

// TxStore is the work available inside a unit of work.
type TxStore interface {
	AccountExists(ctx context.Context, id int64) (bool, error)

	// InsertTransfer appends t and returns the stored row with its id and timestamp.
	InsertTransfer(ctx context.Context, t models.Transfer) (*models.Transfer, error)
}
