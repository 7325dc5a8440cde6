package ledger

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/marshallshelly/pebble-ledger/internal/models"
)

// memStore keeps committed transfers in memory. Writes made inside WithinTx
// are staged and only become visible when fn returns nil.
type memStore struct {
	mu        sync.Mutex
	accounts  map[int64]bool
	transfers []models.Transfer
	nextID    int64

	insertErr error
	commitErr error
	existsErr error
}

func newMemStore(accountIDs ...int64) *memStore {
	s := &memStore{accounts: make(map[int64]bool)}
	for _, id := range accountIDs {
		s.accounts[id] = true
	}
	return s
}

type memTx struct {
	store  *memStore
	staged []models.Transfer
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.transfers = append(s.transfers, tx.staged...)
	s.nextID += int64(len(tx.staged))
	return nil
}

// rollbackFailStore joins a rollback error onto every failed unit of work.
type rollbackFailStore struct {
	*memStore
	rollbackErr error
}

func (s *rollbackFailStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	if err := s.memStore.WithinTx(ctx, fn); err != nil {
		return errors.Join(err, s.rollbackErr)
	}
	return nil
}

func (s *memStore) AccountExists(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.accounts[id], nil
}

func (s *memStore) TransferByID(ctx context.Context, id int64) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transfers {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, newTransferError(ErrNotFound, "transfer not found")
}

func (s *memStore) TransfersByAccount(ctx context.Context, accountID int64, page Page) ([]models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Transfer
	for _, t := range slices.Backward(s.transfers) {
		if page.Status != "" && t.Status != page.Status {
			continue
		}
		if t.SenderID == accountID || t.ReceiverID == accountID {
			matched = append(matched, t)
		}
	}
	if page.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Offset:]
	return matched[:min(page.Limit, len(matched))], nil
}

func (s *memStore) committed() []models.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transfers)
}

func (tx *memTx) AccountExists(ctx context.Context, id int64) (bool, error) {
	if tx.store.existsErr != nil {
		return false, tx.store.existsErr
	}
	return tx.store.accounts[id], nil
}

func (tx *memTx) InsertTransfer(ctx context.Context, t models.Transfer) (*models.Transfer, error) {
	if tx.store.insertErr != nil {
		return nil, tx.store.insertErr
	}
	t.ID = tx.store.nextID + int64(len(tx.staged)) + 1
	t.CreatedAt = time.Now()
	tx.staged = append(tx.staged, t)
	return &t, nil
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransferRecordsCompletedRow(t *testing.T) {
	store := newMemStore(1, 2)
	svc := NewService(store)

	transfer, err := svc.Transfer(context.Background(), 1, 2, amount("100.00"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), transfer.SenderID)
	assert.Equal(t, int64(2), transfer.ReceiverID)
	assert.True(t, transfer.Amount.Equal(amount("100")))
	assert.Equal(t, models.TransferCompleted, transfer.Status)
	assert.NotEqual(t, uuid.Nil, transfer.Reference)
	assert.NotZero(t, transfer.ID)
	assert.False(t, transfer.CreatedAt.IsZero())

	rows := store.committed()
	require.Len(t, rows, 1)
	assert.Equal(t, *transfer, rows[0])
}

func TestTransferRejections(t *testing.T) {
	tests := []struct {
		name       string
		sender     int64
		receiver   int64
		amount     string
		wantKind   error
		wantReason string
	}{
		{"self transfer", 1, 1, "10", ErrInvalidTransfer, "cannot transfer to self"},
		{"self transfer wins over bad amount", 1, 1, "-5", ErrInvalidTransfer, "cannot transfer to self"},
		{"self transfer wins over missing account", 99, 99, "10", ErrInvalidTransfer, "cannot transfer to self"},
		{"missing sender", 99, 2, "10", ErrNotFound, "sender not found"},
		{"missing sender wins over bad amount", 99, 2, "0", ErrNotFound, "sender not found"},
		{"missing sender wins over missing receiver", 99, 98, "10", ErrNotFound, "sender not found"},
		{"missing receiver", 1, 99, "10", ErrNotFound, "receiver not found"},
		{"missing receiver wins over bad amount", 1, 99, "-1", ErrNotFound, "receiver not found"},
		{"zero amount", 1, 2, "0", ErrInvalidTransfer, "amount must be positive"},
		{"negative amount", 1, 2, "-0.01", ErrInvalidTransfer, "amount must be positive"},
		{"sub-cent amount", 1, 2, "0.001", ErrInvalidTransfer, "amount has too many decimal places"},
		{"three decimal places", 1, 2, "10.505", ErrInvalidTransfer, "amount has too many decimal places"},
		{"wider than the amount column", 1, 2, "100000000000000000000.00", ErrInvalidTransfer, "amount exceeds maximum"},
		{"one past the largest amount", 1, 2, "10000000000000000", ErrInvalidTransfer, "amount exceeds maximum"},
		{"sub-cent wins over too large", 1, 2, "100000000000000000000.001", ErrInvalidTransfer, "amount has too many decimal places"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(1, 2)
			svc := NewService(store)

			transfer, err := svc.Transfer(context.Background(), tt.sender, tt.receiver, amount(tt.amount))
			assert.Nil(t, transfer)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.NotErrorIs(t, err, ErrStorageFailure)
			assert.Equal(t, tt.wantReason, err.Error())
			assert.Empty(t, store.committed())
		})
	}
}

func TestTransferAcceptsLargestAmount(t *testing.T) {
	store := newMemStore(1, 2)
	svc := NewService(store)

	transfer, err := svc.Transfer(context.Background(), 1, 2, amount("9999999999999999.99"))
	require.NoError(t, err)
	assert.Equal(t, "9999999999999999.99", transfer.Amount.StringFixed(models.AmountScale))
}

func TestTransferAcceptsTrailingZeros(t *testing.T) {
	store := newMemStore(1, 2)
	svc := NewService(store)

	transfer, err := svc.Transfer(context.Background(), 1, 2, amount("0.010"))
	require.NoError(t, err)
	assert.Equal(t, "0.01", transfer.Amount.StringFixed(models.AmountScale))
}

func TestTransferStorageFailureLeavesNoRow(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(*memStore)
	}{
		{"insert fails", func(s *memStore) { s.insertErr = boom }},
		{"commit fails", func(s *memStore) { s.commitErr = boom }},
		{"lookup fails", func(s *memStore) { s.existsErr = boom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(1, 2)
			tt.setup(store)
			svc := NewService(store)

			transfer, err := svc.Transfer(context.Background(), 1, 2, amount("5"))
			assert.Nil(t, transfer)
			assert.ErrorIs(t, err, ErrStorageFailure)
			assert.ErrorIs(t, err, boom)
			assert.NotErrorIs(t, err, ErrInvalidTransfer)
			assert.NotErrorIs(t, err, ErrNotFound)

			var se *StorageError
			require.ErrorAs(t, err, &se)
			assert.NotEmpty(t, se.Op)
			assert.Empty(t, store.committed())
		})
	}
}

func TestTransferReferencesAreUnique(t *testing.T) {
	store := newMemStore(1, 2)
	svc := NewService(store)

	seen := make(map[uuid.UUID]bool)
	for range 50 {
		transfer, err := svc.Transfer(context.Background(), 1, 2, amount("1"))
		require.NoError(t, err)
		assert.False(t, seen[transfer.Reference], "duplicate reference %s", transfer.Reference)
		seen[transfer.Reference] = true
	}
}

func TestConcurrentTransfersAreIndependent(t *testing.T) {
	const pairs = 20

	ids := make([]int64, 0, pairs*2)
	for i := range int64(pairs * 2) {
		ids = append(ids, i+1)
	}
	store := newMemStore(ids...)
	svc := NewService(store)

	g, ctx := errgroup.WithContext(context.Background())
	for i := range int64(pairs) {
		sender, receiver := 2*i+1, 2*i+2
		g.Go(func() error {
			_, err := svc.Transfer(ctx, sender, receiver, amount("3.50"))
			return err
		})
	}
	require.NoError(t, g.Wait())

	rows := store.committed()
	require.Len(t, rows, pairs)

	seenIDs := make(map[int64]bool)
	for _, row := range rows {
		assert.False(t, seenIDs[row.ID], "duplicate id %d", row.ID)
		seenIDs[row.ID] = true
		assert.Equal(t, row.SenderID+1, row.ReceiverID)
	}
}

func TestGet(t *testing.T) {
	store := newMemStore(1, 2)
	svc := NewService(store)
	ctx := context.Background()

	created, err := svc.Transfer(ctx, 1, 2, amount("42.42"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory(t *testing.T) {
	store := newMemStore(1, 2, 3)
	svc := NewService(store)
	ctx := context.Background()

	for _, tr := range []struct{ from, to int64 }{{1, 2}, {2, 3}, {3, 1}, {2, 1}} {
		_, err := svc.Transfer(ctx, tr.from, tr.to, amount("1"))
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, 1, Page{})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(2), history[0].SenderID, "newest first")
	assert.Equal(t, int64(1), history[2].SenderID)

	page, err := svc.History(ctx, 1, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, history[1], page[0])

	_, err = svc.History(ctx, 99, Page{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageLimit, Offset: 5}, Page{Limit: 1000, Offset: 5}.Normalize())
	assert.Equal(t, Page{Limit: 10}, Page{Limit: 10, Offset: -3}.Normalize())
}

func TestTransferLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := newMemStore(1, 2)
	svc := NewService(store, WithLogger(zap.New(core)))
	ctx := context.Background()

	_, err := svc.Transfer(ctx, 1, 2, amount("7"))
	require.NoError(t, err)
	_, err = svc.Transfer(ctx, 1, 1, amount("7"))
	require.Error(t, err)

	store.insertErr = errors.New("disk full")
	_, err = svc.Transfer(ctx, 1, 2, amount("7"))
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "transfer recorded", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "cannot transfer to self", entries[1].ContextMap()["reason"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestRejectionWithRollbackErrorLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rollbackErr := errors.New("conn closed during rollback")
	store := &rollbackFailStore{memStore: newMemStore(1, 2), rollbackErr: rollbackErr}
	svc := NewService(store, WithLogger(zap.New(core)))

	_, err := svc.Transfer(context.Background(), 1, 1, amount("7"))
	assert.ErrorIs(t, err, ErrInvalidTransfer)
	assert.ErrorIs(t, err, rollbackErr)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "transfer rejected", entries[0].Message)
	assert.Equal(t, "cannot transfer to self", entries[0].ContextMap()["reason"])
}

func TestHistoryStatusFilter(t *testing.T) {
	store := newMemStore(1, 2)
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, 1, 2, amount("1"))
	require.NoError(t, err)

	completed, err := svc.History(ctx, 1, Page{Status: models.TransferCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	failed, err := svc.History(ctx, 1, Page{Status: models.TransferFailed})
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestStorageErrorPassesThroughLedgerErrors(t *testing.T) {
	rejected := newTransferError(ErrNotFound, "sender not found")
	assert.Same(t, rejected, storageError("transfer", rejected))

	wrapped := storageError("transfer", errors.New("boom"))
	assert.Same(t, wrapped, storageError("outer", wrapped))
	assert.Equal(t, "transfer: boom", wrapped.Error())
}
