package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/marshallshelly/pebble-ledger/internal/account"
	"github.com/marshallshelly/pebble-ledger/internal/database"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

const transferColumns = "id, reference, sender_id, receiver_id, amount, status, created_at"

// PostgresStore is the Store backed by the accounts and transfers tables.
type PostgresStore struct {
	db *database.DB
	queries
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ TxStore = queries{}
)

// NewPostgresStore creates a store on db.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db, queries: newQueries(db)}
}

// WithinTx runs fn inside a database transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return s.db.RunInTx(ctx, func(tx *database.Tx) error {
		return fn(newQueries(tx))
	})
}

// TransferByID returns the transfer with id.
func (s *PostgresStore) TransferByID(ctx context.Context, id int64) (*models.Transfer, error) {
	rows, err := s.q.Query(ctx, "SELECT "+transferColumns+" FROM transfers WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer %d: %w", id, err)
	}

	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Transfer])
	if err != nil {
		if errors.Is(database.Classify(err), database.ErrNotFound) {
			return nil, newTransferError(ErrNotFound, "transfer not found")
		}
		return nil, fmt.Errorf("failed to scan transfer %d: %w", id, err)
	}
	return t, nil
}

// TransfersByAccount lists the account's transfers newest first. Ties on
// created_at fall back to id so pages are stable.
func (s *PostgresStore) TransfersByAccount(ctx context.Context, accountID int64, page Page) ([]models.Transfer, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE (sender_id = $1 OR receiver_id = $1)
		  AND ($4::text = '' OR status = $4::text)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID, page.Limit, page.Offset, string(page.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers for account %d: %w", accountID, err)
	}

	transfers, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transfer])
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfers for account %d: %w", accountID, err)
	}
	return transfers, nil
}

// queries holds the statements shared by the pool and a transaction.
type queries struct {
	q        database.Querier
	accounts *account.Repository
}

func newQueries(q database.Querier) queries {
	return queries{q: q, accounts: account.NewRepository(q)}
}

func (q queries) AccountExists(ctx context.Context, id int64) (bool, error) {
	return q.accounts.Exists(ctx, id)
}

func (q queries) InsertTransfer(ctx context.Context, t models.Transfer) (*models.Transfer, error) {
	rows, err := q.q.Query(ctx, `
		INSERT INTO transfers (reference, sender_id, receiver_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+transferColumns,
		t.Reference, t.SenderID, t.ReceiverID, t.Amount, t.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", database.Classify(err))
	}

	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Transfer])
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", database.Classify(err))
	}
	return created, nil
}
