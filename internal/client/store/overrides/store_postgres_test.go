package overrides

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigil/internal/policy"
)

func newStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestFindUserPermissionOverride(t *testing.T) {
	ctx := context.Background()

	t.Run("none", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(`SELECT granted FROM user_app_permission_override`).
			WithArgs(int64(3), "77").
			WillReturnRows(sqlmock.NewRows([]string{"granted"}))

		o, err := store.FindUserPermissionOverride(ctx, 3, "77")
		require.NoError(t, err)
		assert.Nil(t, o)
	})

	t.Run("present", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(`SELECT granted FROM user_app_permission_override`).
			WithArgs(int64(3), "77").
			WillReturnRows(sqlmock.NewRows([]string{"granted"}).AddRow(false))

		o, err := store.FindUserPermissionOverride(ctx, 3, "77")
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, policy.UserPermissionOverride{UserID: 3, ClientID: "77", Granted: false}, *o)
	})
}

func TestListGroupPermissionOverrides(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery(`FROM group_app_permission_override\s+WHERE client_id = \$1\s+ORDER BY override_priority, group_id`).
		WithArgs("77").
		WillReturnRows(sqlmock.NewRows([]string{"group_id", "granted", "override_priority"}).
			AddRow(int64(1), true, int32(0)).
			AddRow(int64(2), false, int32(5)))

	got, err := store.ListGroupPermissionOverrides(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, []policy.GroupPermissionOverride{
		{GroupID: 1, ClientID: "77", Granted: true, Priority: 0},
		{GroupID: 2, ClientID: "77", Granted: false, Priority: 5},
	}, got)
}

func TestListUserRoleOverrides(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery(`FROM user_app_role_override\s+WHERE user_id = \$1 AND client_id = \$2`).
		WithArgs(int64(4), "77").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "granted"}).
			AddRow(int64(4), "editor", true))

	got, err := store.ListUserRoleOverrides(context.Background(), 4, "77")
	require.NoError(t, err)
	assert.Equal(t, []policy.UserRoleOverride{{UserID: 4, ClientID: "77", Role: "editor", Granted: true}}, got)
}

func TestSetUserPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectExec(`ON CONFLICT \(user_id, client_id\) DO UPDATE SET granted = EXCLUDED.granted`).
			WithArgs(int64(4), "77", true).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, store.SetUserPermission(ctx, policy.UserPermissionOverride{UserID: 4, ClientID: "77", Granted: true}))
	})

	t.Run("unknown user", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectExec(`INSERT INTO user_app_permission_override`).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "user_app_permission_override_user_id_fkey"})
		err := store.SetUserPermission(ctx, policy.UserPermissionOverride{UserID: 404, ClientID: "77", Granted: true})
		assert.ErrorIs(t, err, ErrUnknownUser)
	})
}

func TestReplaceGroupPermissions(t *testing.T) {
	ctx := context.Background()
	overrides := []policy.GroupPermissionOverride{
		{GroupID: 1, Granted: true, Priority: 1},
		{GroupID: 2, Granted: false, Priority: 2},
	}

	t.Run("clears then inserts", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM permission_groups WHERE id = ANY\(\$1\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec(`DELETE FROM group_app_permission_override WHERE client_id = \$1`).
			WithArgs("77").
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec(`INSERT INTO group_app_permission_override`).
			WithArgs(int64(1), "77", true, int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO group_app_permission_override`).
			WithArgs(int64(2), "77", false, int32(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.ReplaceGroupPermissions(ctx, "77", overrides))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown group writes nothing", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM permission_groups`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := store.ReplaceGroupPermissions(ctx, "77", overrides)
		assert.ErrorIs(t, err, ErrUnknownGroup)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty list clears", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectExec(`DELETE FROM group_app_permission_override`).
			WithArgs("77").
			WillReturnResult(sqlmock.NewResult(0, 2))
		require.NoError(t, store.ReplaceGroupPermissions(ctx, "77", nil))
	})
}

func TestReplaceGroupRoles(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM permission_groups`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM group_app_role_override WHERE client_id = \$1`).
		WithArgs("77").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO group_app_role_override`).
		WithArgs(int64(1), "77", "editor", true, int32(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO group_app_role_override`).
		WithArgs(int64(1), "77", "viewer", true, int32(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.ReplaceGroupRoles(context.Background(), "77", []policy.GroupRoleOverride{
		{GroupID: 1, Role: "editor", Granted: true},
		{GroupID: 1, Role: "viewer", Granted: true},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
