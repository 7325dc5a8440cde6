package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       error
		constraint string
	}{
		{
			name: "no rows",
			err:  pgx.ErrNoRows,
			want: ErrNotFound,
		},
		{
			name:       "unique violation",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "accounts_name_key"},
			want:       ErrDuplicateKey,
			constraint: "accounts_name_key",
		},
		{
			name:       "foreign key violation",
			err:        &pgconn.PgError{Code: "23503", ConstraintName: "transfers_sender_id_fkey"},
			want:       ErrForeignKeyViolation,
			constraint: "transfers_sender_id_fkey",
		},
		{
			name:       "check violation wrapped in a query error",
			err:        &QueryError{Query: "INSERT", Err: &pgconn.PgError{Code: "23514", ConstraintName: "transfers_amount_positive"}},
			want:       ErrCheckViolation,
			constraint: "transfers_amount_positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "driver error must stay reachable")

			if tt.constraint != "" {
				var ce *ConstraintError
				if assert.ErrorAs(t, got, &ce) {
					assert.Equal(t, tt.constraint, ce.Constraint)
				}
			}
		})
	}
}

func TestClassifyPassesThroughUnknownErrors(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, Classify(plain))

	serialization := &pgconn.PgError{Code: "40001"}
	got := Classify(fmt.Errorf("insert: %w", serialization))
	assert.NotErrorIs(t, got, ErrDuplicateKey)
	assert.ErrorIs(t, got, serialization)
}

func TestQueryErrorUnwrap(t *testing.T) {
	inner := errors.New("syntax error")
	err := &QueryError{Query: "SELEC 1", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "SELEC 1")
}
