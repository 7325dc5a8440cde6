// Package account stores ledger participants.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/marshallshelly/pebble-ledger/internal/database"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")

	// ErrConflict is returned when the account name is already taken.
	ErrConflict = errors.New("account name already taken")

	// ErrInvalid is returned for blank names or secrets.
	ErrInvalid = errors.New("invalid account")
)

const (
	// DefaultSearchLimit applies when Search is called with a non-positive limit.
	DefaultSearchLimit = 20
	// MaxSearchLimit caps Search results.
	MaxSearchLimit = 100
)

const accountColumns = "id, name, secret_hash, active, created_at"

// Repository reads and writes accounts through a Querier, so callers choose
// whether it runs against the pool or inside a transaction.
type Repository struct {
	q database.Querier
}

// NewRepository creates a repository bound to q.
func NewRepository(q database.Querier) *Repository {
	return &Repository{q: q}
}

// FindByID returns the account with id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
}

// FindByName returns the account registered under name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Account, error) {
	return r.findOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE name = $1", name)
}

// Exists reports whether an account with id exists, active or not.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account %d: %w", id, err)
	}
	return exists, nil
}

// Create registers a new active account.
func (r *Repository) Create(ctx context.Context, name, secretHash string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if IsID(name) {
		return nil, fmt.Errorf("%w: name cannot be all digits", ErrInvalid)
	}
	if secretHash == "" {
		return nil, fmt.Errorf("%w: secret hash is required", ErrInvalid)
	}

	rows, err := r.q.Query(ctx, `
		INSERT INTO accounts (name, secret_hash, active)
		VALUES ($1, $2, TRUE)
		RETURNING `+accountColumns,
		name, secretHash,
	)
	if err != nil {
		return nil, r.wrap("create account", err)
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Account])
	if err != nil {
		return nil, r.wrap("create account", err)
	}
	return account, nil
}

// Search returns active accounts whose name contains query, case-insensitively.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]models.Account, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	rows, err := r.q.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE name ILIKE $1 AND active = TRUE
		ORDER BY name
		LIMIT $2`,
		"%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}
	return accounts, nil
}

// SetActive enables or disables an account. Accounts are never deleted.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	return r.updateOne(ctx, "set account status",
		"UPDATE accounts SET active = $2 WHERE id = $1 RETURNING "+accountColumns, id, active)
}

// UpdateSecret replaces the stored secret hash.
func (r *Repository) UpdateSecret(ctx context.Context, id int64, secretHash string) (*models.Account, error) {
	if secretHash == "" {
		return nil, fmt.Errorf("%w: secret hash is required", ErrInvalid)
	}
	return r.updateOne(ctx, "update account secret",
		"UPDATE accounts SET secret_hash = $2 WHERE id = $1 RETURNING "+accountColumns, id, secretHash)
}

func (r *Repository) findOne(ctx context.Context, sql string, arg any) (*models.Account, error) {
	rows, err := r.q.Query(ctx, sql, arg)
	if err != nil {
		return nil, r.wrap("find account", err)
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Account])
	if err != nil {
		return nil, r.wrap("find account", err)
	}
	return account, nil
}

func (r *Repository) updateOne(ctx context.Context, op, sql string, args ...any) (*models.Account, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.wrap(op, err)
	}

	account, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Account])
	if err != nil {
		return nil, r.wrap(op, err)
	}
	return account, nil
}

// wrap maps driver errors onto the package sentinels.
func (r *Repository) wrap(op string, err error) error {
	err = database.Classify(err)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, database.ErrDuplicateKey):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, database.ErrCheckViolation):
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// IsID reports whether ref is written like an account id: one or more ASCII
// digits. Account names never take this form.
func IsID(ref string) bool {
	if ref == "" {
		return false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// escapeLike escapes LIKE wildcards so query matches literally.
func escapeLike(query string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
}
