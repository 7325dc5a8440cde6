package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-ledger/internal/database"
)

// DefaultLockID is the advisory lock key serializing migration runs.
const DefaultLockID int64 = 7_310_425_190

// Executor executes and tracks database migrations.
type Executor struct {
	db       *database.DB
	lockID   int64
	lockConn *pgxpool.Conn
	logger   *zap.Logger
}

// NewExecutor creates a new migration executor.
func NewExecutor(db *database.DB) *Executor {
	return &Executor{
		db:     db,
		lockID: DefaultLockID,
		logger: zap.NewNop(),
	}
}

// WithLockID sets a custom advisory lock ID.
func (e *Executor) WithLockID(lockID int64) *Executor {
	e.lockID = lockID
	return e
}

// WithLogger sets the logger used for per-statement progress.
func (e *Executor) WithLogger(logger *zap.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Initialize creates the schema_migrations table if it doesn't exist.
func (e *Executor) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			applied_at TIMESTAMPTZ,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := e.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	return nil
}

// Lock acquires the advisory lock, blocking until it is free. Advisory locks
// belong to a session, so the executor pins one pooled connection until Unlock.
func (e *Executor) Lock(ctx context.Context) error {
	if e.lockConn != nil {
		return errors.New("migration lock already held")
	}

	conn, err := e.db.Pool().Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration lock: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", e.lockID); err != nil {
		conn.Release()
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	e.lockConn = conn
	return nil
}

// TryLock attempts to acquire the advisory lock without blocking.
func (e *Executor) TryLock(ctx context.Context) (bool, error) {
	if e.lockConn != nil {
		return false, errors.New("migration lock already held")
	}

	conn, err := e.db.Pool().Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire connection for migration lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", e.lockID).Scan(&acquired); err != nil {
		conn.Release()
		return false, fmt.Errorf("failed to try migration lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return false, nil
	}

	e.lockConn = conn
	return true, nil
}

// Unlock releases the advisory lock and returns the pinned connection to the pool.
func (e *Executor) Unlock(ctx context.Context) error {
	if e.lockConn == nil {
		return errors.New("lock was not held")
	}
	conn := e.lockConn
	e.lockConn = nil
	defer conn.Release()

	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", e.lockID).Scan(&released); err != nil {
		return fmt.Errorf("failed to release migration lock: %w", err)
	}
	if !released {
		return errors.New("lock was not held")
	}
	return nil
}

// GetAppliedMigrations returns all migrations that have been applied.
func (e *Executor) GetAppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.queryRecords(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		WHERE status = 'applied'
		ORDER BY version ASC
	`)
}

// GetAllMigrations returns all migration records.
func (e *Executor) GetAllMigrations(ctx context.Context) ([]MigrationRecord, error) {
	return e.queryRecords(ctx, `
		SELECT version, name, status, applied_at, error
		FROM schema_migrations
		ORDER BY version ASC
	`)
}

func (e *Executor) queryRecords(ctx context.Context, query string) ([]MigrationRecord, error) {
	rows, err := e.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var record MigrationRecord
		if err := rows.Scan(&record.Version, &record.Name, &record.Status, &record.AppliedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// IsMigrationApplied checks if a specific migration has been applied.
func (e *Executor) IsMigrationApplied(ctx context.Context, version string) (bool, error) {
	var applied bool
	err := e.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1 AND status = 'applied')",
		version,
	).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return applied, nil
}

// Apply executes a migration's up SQL in one transaction. When a statement
// fails the transaction rolls back and the failure is recorded separately so
// `migrate status` can show it.
func (e *Executor) Apply(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("migration %s is already applied", migration.Version)
	}

	if dryRun {
		return nil
	}

	err = e.db.RunInTx(ctx, func(tx *database.Tx) error {
		for i, stmt := range splitSQL(migration.UpSQL) {
			e.logger.Debug("executing migration statement",
				zap.String("version", migration.Version),
				zap.Int("statement", i+1),
			)
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration failed at statement %d: %w", i+1, err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO schema_migrations (version, name, status, applied_at, error)
			VALUES ($1, $2, 'applied', $3, NULL)
			ON CONFLICT (version) DO UPDATE
			SET name = EXCLUDED.name, status = 'applied', applied_at = EXCLUDED.applied_at, error = NULL`,
			migration.Version, migration.Name, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		e.recordFailure(ctx, migration, err)
		return err
	}

	e.logger.Info("migration applied", zap.String("version", migration.Version), zap.String("name", migration.Name))
	return nil
}

func (e *Executor) recordFailure(ctx context.Context, migration Migration, cause error) {
	_, err := e.db.Exec(ctx, `
		INSERT INTO schema_migrations (version, name, status, error)
		VALUES ($1, $2, 'failed', $3)
		ON CONFLICT (version) DO UPDATE SET status = 'failed', error = EXCLUDED.error`,
		migration.Version, migration.Name, cause.Error(),
	)
	if err != nil {
		e.logger.Warn("failed to record migration failure",
			zap.String("version", migration.Version),
			zap.Error(err),
		)
	}
}

// Rollback executes a migration's down SQL and removes its tracking row.
func (e *Executor) Rollback(ctx context.Context, migration Migration, dryRun bool) error {
	applied, err := e.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("migration %s is not applied", migration.Version)
	}

	if dryRun {
		return nil
	}

	err = e.db.RunInTx(ctx, func(tx *database.Tx) error {
		for i, stmt := range splitSQL(migration.DownSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rollback failed at statement %d: %w", i+1, err)
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to delete migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("migration rolled back", zap.String("version", migration.Version), zap.String("name", migration.Name))
	return nil
}

// Pending returns the migrations not yet applied, in order.
func (e *Executor) Pending(ctx context.Context, migrations []Migration) ([]Migration, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	appliedMap := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	var pending []Migration
	for _, migration := range migrations {
		if !appliedMap[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// ApplyAll applies all pending migrations and returns the ones applied.
func (e *Executor) ApplyAll(ctx context.Context, migrations []Migration, dryRun bool) ([]Migration, error) {
	pending, err := e.Pending(ctx, migrations)
	if err != nil {
		return nil, err
	}

	for i, migration := range pending {
		if err := e.Apply(ctx, migration, dryRun); err != nil {
			return pending[:i], fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
	}

	return pending, nil
}

// RollbackTo rolls back, newest first, every applied migration after targetVersion.
func (e *Executor) RollbackTo(ctx context.Context, targetVersion string, migrations []Migration, dryRun bool) ([]Migration, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	migrationMap := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		migrationMap[m.Version] = m
	}

	var rolledBack []Migration
	for i := len(applied) - 1; i >= 0; i-- {
		record := applied[i]
		if record.Version <= targetVersion {
			break
		}

		migration, exists := migrationMap[record.Version]
		if !exists {
			return rolledBack, fmt.Errorf("migration file not found for version %s", record.Version)
		}

		if err := e.Rollback(ctx, migration, dryRun); err != nil {
			return rolledBack, fmt.Errorf("failed to rollback migration %s: %w", record.Version, err)
		}
		rolledBack = append(rolledBack, migration)
	}

	return rolledBack, nil
}

// RollbackSteps rolls back the last n applied migrations, newest first.
func (e *Executor) RollbackSteps(ctx context.Context, n int, migrations []Migration, dryRun bool) ([]Migration, error) {
	applied, err := e.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 || len(applied) == 0 {
		return nil, nil
	}

	n = min(n, len(applied))
	target := ""
	if n < len(applied) {
		target = applied[len(applied)-1-n].Version
	}
	return e.RollbackTo(ctx, target, migrations, dryRun)
}

// GetStatus merges tracked records with known migrations; untracked ones are pending.
func (e *Executor) GetStatus(ctx context.Context, migrations []Migration) ([]MigrationRecord, error) {
	tracked, err := e.GetAllMigrations(ctx)
	if err != nil {
		return nil, err
	}
	trackedMap := make(map[string]MigrationRecord, len(tracked))
	for _, m := range tracked {
		trackedMap[m.Version] = m
	}

	records := make([]MigrationRecord, 0, len(migrations))
	for _, migration := range migrations {
		if record, exists := trackedMap[migration.Version]; exists {
			records = append(records, record)
			continue
		}
		records = append(records, MigrationRecord{
			Version: migration.Version,
			Name:    migration.Name,
			Status:  StatusPending,
		})
	}

	return records, nil
}

// Validate checks that every tracked migration is still known to the binary.
func (e *Executor) Validate(ctx context.Context, migrations []Migration) error {
	tracked, err := e.GetAllMigrations(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		known[m.Version] = true
	}

	var missing []string
	for _, record := range tracked {
		if !known[record.Version] {
			missing = append(missing, record.Version)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing migration files: %v", missing)
	}

	return nil
}

// Up initializes tracking, takes the lock and applies every embedded migration.
func Up(ctx context.Context, db *database.DB, logger *zap.Logger) ([]Migration, error) {
	migrations, err := Embedded()
	if err != nil {
		return nil, err
	}

	executor := NewExecutor(db).WithLogger(logger)
	if err := executor.Initialize(ctx); err != nil {
		return nil, err
	}
	if err := executor.Lock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = executor.Unlock(ctx) }()

	if err := executor.Validate(ctx, migrations); err != nil {
		return nil, err
	}

	return executor.ApplyAll(ctx, migrations, false)
}
