package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx    *fakeTx
	calls int
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	b.calls++
	b.tx = &fakeTx{}
	return b.tx, nil
}

func TestDB_WithTx_Commits(t *testing.T) {
	b := &fakeBeginner{}
	db := NewDB(b, nil)

	fallback := new(mockDBTX)
	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		assert.Same(t, b.tx, conn(ctx, fallback))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
}

func TestDB_WithTx_RollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	db := NewDB(b, nil)

	boom := errors.New("boom")
	err := db.WithTx(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, b.tx.rolledBack)
	assert.False(t, b.tx.committed)
}

func TestDB_WithTx_ReusesOuterTransaction(t *testing.T) {
	b := &fakeBeginner{}
	db := NewDB(b, nil)

	err := db.WithTx(context.Background(), func(ctx context.Context) error {
		return db.WithTx(ctx, func(ctx context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.Equal(t, 1, b.calls)
}

func TestConn_FallsBackWithoutTransaction(t *testing.T) {
	fallback := new(mockDBTX)
	assert.Same(t, fallback, conn(context.Background(), fallback))
}
