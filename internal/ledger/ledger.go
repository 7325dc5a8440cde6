// Package ledger records transfers between accounts as append-only ledger rows.
//
// A transfer is record-only: no balance is debited or credited. Each call to
// Service.Transfer runs its checks and its insert in a single unit of work,
// so a rejected or failed transfer leaves the ledger untouched.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marshallshelly/pebble-ledger/internal/logging"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

// maxAmount is the smallest amount the amount column cannot hold.
var maxAmount = decimal.New(1, models.AmountPrecision-models.AmountScale)

// Service performs ledger operations against a Store.
type Service struct {
	store        Store
	logger       *zap.Logger
	newReference func() uuid.UUID
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		logger:       zap.NewNop(),
		newReference: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transfer records amount moving from senderID to receiverID.
//
// Checks run in this order and stop at the first failure: distinct parties,
// sender exists, receiver exists, amount positive, amount representable at
// two decimal places, amount within the column's precision. The returned
// transfer has status completed.
func (s *Service) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal) (*models.Transfer, error) {
	var created *models.Transfer

	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		if senderID == receiverID {
			return newTransferError(ErrInvalidTransfer, "cannot transfer to self")
		}

		if err := requireAccount(ctx, tx, senderID, "sender"); err != nil {
			return err
		}
		if err := requireAccount(ctx, tx, receiverID, "receiver"); err != nil {
			return err
		}

		if !amount.IsPositive() {
			return newTransferError(ErrInvalidTransfer, "amount must be positive")
		}
		if !amount.Equal(amount.Round(models.AmountScale)) {
			return newTransferError(ErrInvalidTransfer, "amount has too many decimal places")
		}
		if amount.GreaterThanOrEqual(maxAmount) {
			return newTransferError(ErrInvalidTransfer, "amount exceeds maximum")
		}

		t, err := tx.InsertTransfer(ctx, models.Transfer{
			Reference:  s.newReference(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Amount:     amount,
			Status:     models.TransferCompleted,
		})
		if err != nil {
			return storageError("record transfer", err)
		}
		created = t
		return nil
	})
	if err != nil {
		err = storageError("transfer", err)
		s.logRejection(err,
			zap.Int64("sender_id", senderID),
			zap.Int64("receiver_id", receiverID),
			zap.String("amount", amount.String()),
		)
		return nil, err
	}

	s.logger.Info("transfer recorded",
		zap.Int64("transfer_id", created.ID),
		zap.String("reference", created.Reference.String()),
		zap.Int64("sender_id", created.SenderID),
		zap.Int64("receiver_id", created.ReceiverID),
		zap.String("amount", created.Amount.StringFixed(models.AmountScale)),
	)

	return created, nil
}

// Get returns the transfer with id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Transfer, error) {
	t, err := s.store.TransferByID(ctx, id)
	if err != nil {
		return nil, storageError("get transfer", err)
	}
	return t, nil
}

// History lists the transfers accountID sent or received, newest first.
func (s *Service) History(ctx context.Context, accountID int64, page Page) ([]models.Transfer, error) {
	exists, err := s.store.AccountExists(ctx, accountID)
	if err != nil {
		return nil, storageError("look up account", err)
	}
	if !exists {
		return nil, newTransferError(ErrNotFound, "account not found")
	}

	transfers, err := s.store.TransfersByAccount(ctx, accountID, page.Normalize())
	if err != nil {
		return nil, storageError("list transfers", err)
	}
	return transfers, nil
}

func requireAccount(ctx context.Context, tx TxStore, id int64, role string) error {
	exists, err := tx.AccountExists(ctx, id)
	if err != nil {
		return storageError("look up "+role, err)
	}
	if !exists {
		return newTransferError(ErrNotFound, role+" not found")
	}
	return nil
}

func (s *Service) logRejection(err error, fields ...zap.Field) {
	var te *TransferError
	if errors.As(err, &te) {
		s.logger.Warn("transfer rejected", append(fields, zap.String("reason", te.Reason))...)
		return
	}
	s.logger.Error("transfer failed", append(fields, zap.Error(err))...)
}
