package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-ledger/internal/account"
	"github.com/marshallshelly/pebble-ledger/internal/ledger"
	"github.com/marshallshelly/pebble-ledger/internal/models"
)

func TestHistoryPage(t *testing.T) {
	page, err := historyPage(50, 10, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.Page{Limit: 50, Offset: 10}, page)

	page, err = historyPage(0, 0, " Completed ")
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, page.Status)

	_, err = historyPage(0, 0, "settled")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransfer)
	assert.ErrorContains(t, err, `unknown transfer status "settled"`)
}

func TestResolveAccountID(t *testing.T) {
	// Numeric references never reach the repository.
	id, err := resolveAccount(context.Background(), nil, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = resolveAccount(context.Background(), nil, "99999999999999999999")
	assert.ErrorIs(t, err, account.ErrInvalid)
}
