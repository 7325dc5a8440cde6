package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-ledger/cmd/ledger/output"
	"github.com/marshallshelly/pebble-ledger/cmd/ledger/tui"
	"github.com/marshallshelly/pebble-ledger/internal/migration"
)

var (
	// Migrate flags
	dryRun      bool
	all         bool
	upSteps     int
	downSteps   int
	target      string
	interactive bool
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the ledger schema. Migrations are embedded in the binary.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations
  status  - Show migration status`,
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations to create or update the ledger schema.

Examples:
  ledger migrate up --all              # Apply all pending migrations
  ledger migrate up --steps 1          # Apply next migration
  ledger migrate up --dry-run --all    # Preview migrations without applying`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp(cmd.Context())
	},
}

// migrateDownCmd rolls back migrations
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations, newest first.

Examples:
  ledger migrate down --steps 1        # Rollback last migration
  ledger migrate down --target VERSION # Rollback everything after VERSION
  ledger migrate down --dry-run        # Preview rollback without executing`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateDown(cmd.Context())
	},
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Show the status of all migrations (pending, applied, failed).

Examples:
  ledger migrate status                # Show migration status
  ledger migrate status --json         # Output in JSON format`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)

	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateUpCmd.Flags().BoolVar(&all, "all", false, "Apply all pending migrations")
	migrateUpCmd.Flags().IntVar(&upSteps, "steps", 0, "Number of migrations to apply")

	migrateDownCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
	migrateDownCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview rollback without executing")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to rollback")
	migrateDownCmd.Flags().StringVar(&target, "target", "", "Rollback every migration after this version")
}

// openMigrator connects and prepares an executor with the embedded migrations.
func openMigrator(ctx context.Context) (*app, *migration.Executor, []migration.Migration, error) {
	a, err := openApp(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	migrations, err := migration.Embedded()
	if err != nil {
		a.Close()
		return nil, nil, nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	executor := migration.NewExecutor(a.db).WithLogger(a.logger)
	if err := executor.Initialize(ctx); err != nil {
		a.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	return a, executor, migrations, nil
}

func runMigrateUp(ctx context.Context) error {
	if !all && upSteps <= 0 && !interactive {
		return fmt.Errorf("must specify --all or --steps")
	}

	a, executor, migrations, err := openMigrator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if interactive {
		return tui.RunMigrateUI(ctx, tui.ActionUp, executor, migrations)
	}

	if !dryRun {
		if err := executor.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() { _ = executor.Unlock(ctx) }()
	}

	if err := executor.Validate(ctx, migrations); err != nil {
		return err
	}

	toApply, err := executor.Pending(ctx, migrations)
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if !all && upSteps < len(toApply) {
		toApply = toApply[:upSteps]
	}

	if len(toApply) == 0 {
		output.Info("No pending migrations")
		return nil
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
		output.Info("The following migrations would be applied:")
		for _, mig := range toApply {
			_, _ = fmt.Fprintf(output.Stdout, "  %s %s - %s\n", output.StatusIcon("pending"), mig.Version, mig.Name)
		}
		return nil
	}

	output.Section("Applying Migrations")
	for _, mig := range toApply {
		output.Info("Applying %s - %s...", mig.Version, mig.Name)
		if err := executor.Apply(ctx, mig, false); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.Version, err)
		}
		output.Success("Applied %s", mig.Version)
	}

	_, _ = fmt.Fprintln(output.Stdout)
	output.Success("Successfully applied %d migration(s)", len(toApply))
	return nil
}

func runMigrateDown(ctx context.Context) error {
	a, executor, migrations, err := openMigrator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if interactive {
		return tui.RunMigrateUI(ctx, tui.ActionDown, executor, migrations)
	}

	if !dryRun {
		if err := executor.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() { _ = executor.Unlock(ctx) }()
	}

	var rolledBack []migration.Migration
	if target != "" {
		rolledBack, err = executor.RollbackTo(ctx, target, migrations, dryRun)
	} else {
		rolledBack, err = executor.RollbackSteps(ctx, downSteps, migrations, dryRun)
	}
	for _, mig := range rolledBack {
		if dryRun {
			continue
		}
		output.Success("Rolled back %s - %s", mig.Version, mig.Name)
	}
	if err != nil {
		return err
	}

	if len(rolledBack) == 0 {
		output.Info("No migrations to rollback")
		return nil
	}

	if dryRun {
		output.Section("DRY RUN - Preview")
		output.Info("The following migrations would be rolled back:")
		for _, mig := range rolledBack {
			_, _ = fmt.Fprintf(output.Stdout, "  %s %s - %s\n", output.StatusIcon("applied"), mig.Version, mig.Name)
		}
		return nil
	}

	_, _ = fmt.Fprintln(output.Stdout)
	output.Success("Successfully rolled back %d migration(s)", len(rolledBack))
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	a, executor, migrations, err := openMigrator(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := executor.GetStatus(ctx, migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if jsonOutput {
		return printJSON(status)
	}

	w := tabwriter.NewWriter(output.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	_, _ = fmt.Fprintln(w, "-------\t----\t------\t----------")

	for _, record := range status {
		appliedAt := "N/A"
		if record.AppliedAt != nil {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
			record.Version,
			record.Name,
			output.StatusIcon(string(record.Status)),
			record.Status,
			appliedAt,
		)
	}
	_ = w.Flush()

	for _, record := range status {
		if record.Status == migration.StatusFailed && record.Error != nil {
			output.Error("%s failed: %s", record.Version, *record.Error)
		}
	}

	summary := migration.Summarize(status)
	_, _ = fmt.Fprintf(output.Stdout, "\nSummary: %d applied, %d pending", summary.Applied, summary.Pending)
	if summary.Failed > 0 {
		_, _ = fmt.Fprintf(output.Stdout, ", %d failed", summary.Failed)
	}
	_, _ = fmt.Fprintln(output.Stdout)

	return nil
}
