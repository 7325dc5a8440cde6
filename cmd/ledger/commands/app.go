package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-ledger/cmd/ledger/output"
	"github.com/marshallshelly/pebble-ledger/internal/account"
	"github.com/marshallshelly/pebble-ledger/internal/config"
	"github.com/marshallshelly/pebble-ledger/internal/database"
	"github.com/marshallshelly/pebble-ledger/internal/ledger"
	"github.com/marshallshelly/pebble-ledger/internal/logging"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

// app holds what every database-backed command needs.
type app struct {
	config *config.Config
	logger *zap.Logger
	db     *database.DB
}

// openApp loads configuration, builds the logger and connects to the database.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Debug("connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	return &app{config: cfg, logger: logger, db: db}, nil
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.logger.Sync()
}

func (a *app) accounts() *account.Repository {
	return account.NewRepository(a.db)
}

func (a *app) ledger() *ledger.Service {
	return ledger.NewService(ledger.NewPostgresStore(a.db), ledger.WithLogger(a.logger))
}

// resolveAccount accepts a numeric id or an account name.
func resolveAccount(ctx context.Context, repo *account.Repository, ref string) (int64, error) {
	if account.IsID(ref) {
		return parseAccountID(ref)
	}
	acct, err := repo.FindByName(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("account %q: %w", ref, err)
	}
	return acct.ID, nil
}

// findAccount loads the account ref names, by id or by name.
func findAccount(ctx context.Context, repo *account.Repository, ref string) (*models.Account, error) {
	if account.IsID(ref) {
		id, err := parseAccountID(ref)
		if err != nil {
			return nil, err
		}
		return repo.FindByID(ctx, id)
	}
	return repo.FindByName(ctx, ref)
}

func parseAccountID(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid account id %q", account.ErrInvalid, ref)
	}
	return id, nil
}

// reportError prints err with a label for its kind.
func reportError(err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, account.ErrNotFound):
		output.Error("Not found: %v", err)
	case errors.Is(err, ledger.ErrInvalidTransfer), errors.Is(err, account.ErrInvalid):
		output.Error("Rejected: %v", err)
	case errors.Is(err, account.ErrConflict):
		output.Error("Conflict: %v", err)
	case errors.Is(err, ledger.ErrStorageFailure):
		output.Error("Storage failure: %v", err)
	default:
		output.Error("%v", err)
	}
}
