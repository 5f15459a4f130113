package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupMockDB provides a gorm handle over sqlmock for asserting the exact SQL
// shape of the conditional updates against the Postgres dialect.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestMarkConsumedSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPoolEntryRepository(db)
	ctx := context.Background()

	t.Run("Wins The Race", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "pool_entries" SET .+ WHERE id = \$\d+ AND is_consumed = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.MarkConsumed(ctx, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Loses The Race", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "pool_entries" SET .+ WHERE id = \$\d+ AND is_consumed = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.MarkConsumed(ctx, 7)
		assert.ErrorIs(t, err, ErrPoolEntryConsumed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAssignReceivedPostSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewExchangeRepository(db)
	ctx := context.Background()

	t.Run("Unresolved Exchange", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "exchanges" SET .+ WHERE id = \$\d+ AND received_post_id IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.AssignReceivedPost(ctx, 3, 11))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Resolved", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "exchanges" SET .+ WHERE id = \$\d+ AND received_post_id IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.AssignReceivedPost(ctx, 3, 12)
		assert.ErrorIs(t, err, ErrExchangeResolved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
