package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/pebble-ledger/cmd/ledger/output"
)

var (
	// Global flags
	dbURL      string
	envFile    string
	logLevel   string
	logFormat  string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Pebble Ledger - append-only transfer ledger on PostgreSQL",
	Long: `Pebble Ledger records monetary transfers between accounts as immutable
ledger rows in PostgreSQL.

Features:
  - Atomic, validated transfers with a unique reference per movement
  - Account registration, lookup and activation
  - Embedded schema migrations with advisory locking
  - Interactive TUI and non-interactive CLI modes

Configuration is read from the environment (DATABASE_URL, POSTGRES_*, LOG_*),
optionally preloaded from a .env file. Flags override the environment.`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or console (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func printJSON(v any) error {
	enc := json.NewEncoder(output.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
