package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigil/pkg/platform/tx"
)

func TestRunInTx(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM group_app_permission_override").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err = NewTxRunner(db).RunInTx(context.Background(), func(ctx context.Context) error {
			_, ok := tx.From(ctx)
			require.True(t, ok, "transaction should be carried on ctx")
			_, err := tx.Conn(ctx, db).ExecContext(ctx, "DELETE FROM group_app_permission_override WHERE client_id = $1", "c1")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = NewTxRunner(db).RunInTx(context.Background(), func(context.Context) error { return boom })
		require.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses a cancelled context", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = NewTxRunner(db).RunInTx(ctx, func(context.Context) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	constraint, ok := UniqueViolation(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "users_email_key", constraint)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("plain"))
	assert.False(t, ok)
}

func TestForeignKeyViolation(t *testing.T) {
	constraint, ok := ForeignKeyViolation(&pgconn.PgError{Code: "23503", ConstraintName: "user_app_permission_override_user_id_fkey"})
	assert.True(t, ok)
	assert.Equal(t, "user_app_permission_override_user_id_fkey", constraint)

	_, ok = ForeignKeyViolation(&pgconn.PgError{Code: "23505"})
	assert.False(t, ok)
}
