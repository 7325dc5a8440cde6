// Package models holds the ledger's persisted records.
package models

import "time"

// Account is a registered ledger participant. Name is immutable after
// creation and accounts are never deleted, only deactivated.
type Account struct {
	ID         int64     `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	SecretHash string    `db:"secret_hash" json:"-"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
