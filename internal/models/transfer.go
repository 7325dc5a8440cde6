package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the lifecycle state stored on a ledger row.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

const (
	// AmountPrecision is the total number of digits the amount column stores.
	AmountPrecision = 18
	// AmountScale is the number of fractional digits the amount column stores.
	AmountScale = 2
)

// Valid reports whether s is one of the known statuses.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferCompleted, TransferFailed:
		return true
	}
	return false
}

// ParseTransferStatus parses a status name, ignoring case and surrounding space.
func ParseTransferStatus(s string) (TransferStatus, error) {
	status := TransferStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown transfer status %q", s)
	}
	return status, nil
}

// Transfer is one append-only ledger entry moving Amount from sender to receiver.
type Transfer struct {
	ID         int64           `db:"id" json:"id"`
	Reference  uuid.UUID       `db:"reference" json:"reference"`
	SenderID   int64           `db:"sender_id" json:"sender_id"`
	ReceiverID int64           `db:"receiver_id" json:"receiver_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Status     TransferStatus  `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Direction is the transfer's direction relative to accountID:
// "out" when the account sent it, "in" when it received it, "" otherwise.
func (t Transfer) Direction(accountID int64) string {
	switch accountID {
	case t.SenderID:
		return "out"
	case t.ReceiverID:
		return "in"
	default:
		return ""
	}
}

// SignedAmount is Amount negated for the sender's view.
func (t Transfer) SignedAmount(accountID int64) decimal.Decimal {
	if accountID == t.SenderID {
		return t.Amount.Neg()
	}
	return t.Amount
}
