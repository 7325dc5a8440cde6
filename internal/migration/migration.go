// Package migration applies and tracks the ledger's versioned SQL migrations.
package migration

import "time"

// Migration represents a database migration.
type Migration struct {
	Version string // Version/timestamp (e.g., "20250114090000")
	Name    string // Migration name (e.g., "create_accounts")
	UpSQL   string // SQL for applying the migration
	DownSQL string // SQL for rolling back the migration
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusPending means the migration has not been applied.
	StatusPending MigrationStatus = "pending"
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the migration failed to apply.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a migration in the tracking table.
type MigrationRecord struct {
	Version   string          `json:"version"`
	Name      string          `json:"name"`
	Status    MigrationStatus `json:"status"`
	AppliedAt *time.Time      `json:"applied_at,omitempty"`
	Error     *string         `json:"error,omitempty"`
}

// Summary counts records by status.
type Summary struct {
	Applied int
	Pending int
	Failed  int
}

// Summarize counts records by status.
func Summarize(records []MigrationRecord) Summary {
	var s Summary
	for _, record := range records {
		switch record.Status {
		case StatusApplied:
			s.Applied++
		case StatusPending:
			s.Pending++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
