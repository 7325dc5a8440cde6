package account

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestCreateRejectsBlankInput(t *testing.T) {
	repo := NewRepository(nil)
	ctx := context.Background()

	_, err := repo.Create(ctx, "   ", "hash")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = repo.Create(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = repo.UpdateSecret(ctx, 1, "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCreateRejectsNumericName(t *testing.T) {
	repo := NewRepository(nil)

	_, err := repo.Create(context.Background(), " 42 ", "hash")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "all digits")
}

func TestIsID(t *testing.T) {
	for _, ref := range []string{"1", "42", "007"} {
		assert.True(t, IsID(ref), ref)
	}
	for _, ref := range []string{"", "alice", "42a", "-1", "+1", "4 2", "１"} {
		assert.False(t, IsID(ref), ref)
	}
}

func TestWrap(t *testing.T) {
	repo := NewRepository(nil)

	assert.Same(t, ErrNotFound, repo.wrap("find account", pgx.ErrNoRows))

	dup := repo.wrap("create account", &pgconn.PgError{Code: "23505", ConstraintName: "accounts_name_key"})
	assert.ErrorIs(t, dup, ErrConflict)

	blank := repo.wrap("create account", &pgconn.PgError{Code: "23514", ConstraintName: "accounts_name_not_blank"})
	assert.ErrorIs(t, blank, ErrInvalid)

	numeric := repo.wrap("create account", &pgconn.PgError{Code: "23514", ConstraintName: "accounts_name_not_numeric"})
	assert.ErrorIs(t, numeric, ErrInvalid)

	boom := errors.New("connection refused")
	other := repo.wrap("find account", boom)
	assert.ErrorIs(t, other, boom)
	assert.NotErrorIs(t, other, ErrNotFound)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "alice", escapeLike("alice"))
}
