package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced account or transfer does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransfer is returned for self-transfers and bad amounts.
	ErrInvalidTransfer = errors.New("invalid transfer")

	// ErrStorageFailure matches every *StorageError.
	ErrStorageFailure = errors.New("storage failure")
)

// TransferError is a rejected transfer. Kind is ErrNotFound or ErrInvalidTransfer.
type TransferError struct {
	Kind   error
	Reason string
}

func newTransferError(kind error, reason string) *TransferError {
	return &TransferError{Kind: kind, Reason: reason}
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	return e.Reason
}

// Unwrap returns the error kind.
func (e *TransferError) Unwrap() error {
	return e.Kind
}

// StorageError is an underlying persistence failure, passed through untouched.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is matches ErrStorageFailure.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageError wraps err unless it already carries a ledger error kind.
func storageError(op string, err error) error {
	var te *TransferError
	var se *StorageError
	if errors.As(err, &te) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
