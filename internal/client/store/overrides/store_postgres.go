package overrides

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/lib/pq"

	"sigil/internal/platform/postgres"
	"sigil/internal/policy"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

var (
	ErrUnknownUser  = fmt.Errorf("override references unknown user: %w", sentinel.ErrNotFound)
	ErrUnknownGroup = fmt.Errorf("override references unknown group: %w", sentinel.ErrNotFound)
)

// PostgresStore reads and writes per-application permission and role
// overrides. It satisfies policy.OverrideStore.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ policy.OverrideStore = (*PostgresStore)(nil)

func (s *PostgresStore) FindUserPermissionOverride(ctx context.Context, userID id.UserID, clientID id.ClientID) (*policy.UserPermissionOverride, error) {
	o := policy.UserPermissionOverride{UserID: userID, ClientID: clientID}
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT granted FROM user_app_permission_override WHERE user_id = $1 AND client_id = $2`,
		int64(userID), clientID.String(),
	).Scan(&o.Granted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user permission override: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) ListUserPermissionOverrides(ctx context.Context, clientID id.ClientID) ([]policy.UserPermissionOverride, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT user_id, granted FROM user_app_permission_override WHERE client_id = $1 ORDER BY user_id`,
		clientID.String())
	if err != nil {
		return nil, fmt.Errorf("list user permission overrides: %w", err)
	}
	defer rows.Close()

	out := []policy.UserPermissionOverride{}
	for rows.Next() {
		o := policy.UserPermissionOverride{ClientID: clientID}
		var uid int64
		if err := rows.Scan(&uid, &o.Granted); err != nil {
			return nil, fmt.Errorf("list user permission overrides: scan: %w", err)
		}
		o.UserID = id.UserID(uid)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user permission overrides: iterate: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListGroupPermissionOverrides(ctx context.Context, clientID id.ClientID) ([]policy.GroupPermissionOverride, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT group_id, granted, override_priority FROM group_app_permission_override
		WHERE client_id = $1
		ORDER BY override_priority, group_id`,
		clientID.String())
	if err != nil {
		return nil, fmt.Errorf("list group permission overrides: %w", err)
	}
	defer rows.Close()

	out := []policy.GroupPermissionOverride{}
	for rows.Next() {
		o := policy.GroupPermissionOverride{ClientID: clientID}
		var gid int64
		if err := rows.Scan(&gid, &o.Granted, &o.Priority); err != nil {
			return nil, fmt.Errorf("list group permission overrides: scan: %w", err)
		}
		o.GroupID = id.GroupID(gid)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list group permission overrides: iterate: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListUserRoleOverrides(ctx context.Context, userID id.UserID, clientID id.ClientID) ([]policy.UserRoleOverride, error) {
	return s.queryUserRoles(ctx, "list user role overrides", `
		SELECT user_id, role, granted FROM user_app_role_override
		WHERE user_id = $1 AND client_id = $2
		ORDER BY role`,
		clientID, int64(userID), clientID.String())
}

// ListUserRoleOverridesForClient returns every user's role overrides for the
// admin detail view.
func (s *PostgresStore) ListUserRoleOverridesForClient(ctx context.Context, clientID id.ClientID) ([]policy.UserRoleOverride, error) {
	return s.queryUserRoles(ctx, "list user role overrides for client", `
		SELECT user_id, role, granted FROM user_app_role_override
		WHERE client_id = $1
		ORDER BY user_id, role`,
		clientID, clientID.String())
}

func (s *PostgresStore) ListGroupRoleOverrides(ctx context.Context, clientID id.ClientID) ([]policy.GroupRoleOverride, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT group_id, role, granted, override_priority FROM group_app_role_override
		WHERE client_id = $1
		ORDER BY override_priority, group_id, role`,
		clientID.String())
	if err != nil {
		return nil, fmt.Errorf("list group role overrides: %w", err)
	}
	defer rows.Close()

	out := []policy.GroupRoleOverride{}
	for rows.Next() {
		o := policy.GroupRoleOverride{ClientID: clientID}
		var gid int64
		if err := rows.Scan(&gid, &o.Role, &o.Granted, &o.Priority); err != nil {
			return nil, fmt.Errorf("list group role overrides: scan: %w", err)
		}
		o.GroupID = id.GroupID(gid)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list group role overrides: iterate: %w", err)
	}
	return out, nil
}

// SetUserPermission creates or replaces the user's permission override.
func (s *PostgresStore) SetUserPermission(ctx context.Context, o policy.UserPermissionOverride) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO user_app_permission_override (user_id, client_id, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, client_id) DO UPDATE SET granted = EXCLUDED.granted`,
		int64(o.UserID), o.ClientID.String(), o.Granted,
	)
	return mapWriteError(err, "set user permission override")
}

func (s *PostgresStore) DeleteUserPermission(ctx context.Context, userID id.UserID, clientID id.ClientID) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM user_app_permission_override WHERE user_id = $1 AND client_id = $2`,
		int64(userID), clientID.String())
	if err != nil {
		return fmt.Errorf("delete user permission override: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetUserRole(ctx context.Context, o policy.UserRoleOverride) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO user_app_role_override (user_id, client_id, role, granted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, client_id, role) DO UPDATE SET granted = EXCLUDED.granted`,
		int64(o.UserID), o.ClientID.String(), o.Role, o.Granted,
	)
	return mapWriteError(err, "set user role override")
}

func (s *PostgresStore) DeleteUserRole(ctx context.Context, userID id.UserID, clientID id.ClientID, role string) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM user_app_role_override WHERE user_id = $1 AND client_id = $2 AND role = $3`,
		int64(userID), clientID.String(), role)
	if err != nil {
		return fmt.Errorf("delete user role override: %w", err)
	}
	return nil
}

// ReplaceGroupPermissions swaps the client's group permission overrides for
// overrides. Callers run it inside a transaction so readers never observe the
// empty intermediate state.
func (s *PostgresStore) ReplaceGroupPermissions(ctx context.Context, clientID id.ClientID, overrides []policy.GroupPermissionOverride) error {
	groupIDs := make([]id.GroupID, len(overrides))
	for i, o := range overrides {
		groupIDs[i] = o.GroupID
	}
	if err := s.requireGroups(ctx, groupIDs); err != nil {
		return err
	}

	conn := txcontext.Conn(ctx, s.db)
	if _, err := conn.ExecContext(ctx,
		`DELETE FROM group_app_permission_override WHERE client_id = $1`, clientID.String()); err != nil {
		return fmt.Errorf("clear group permission overrides: %w", err)
	}
	for _, o := range overrides {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO group_app_permission_override (group_id, client_id, granted, override_priority)
			VALUES ($1, $2, $3, $4)`,
			int64(o.GroupID), clientID.String(), o.Granted, o.Priority,
		)
		if err != nil {
			return mapWriteError(err, "insert group permission override")
		}
	}
	return nil
}

func (s *PostgresStore) ReplaceGroupRoles(ctx context.Context, clientID id.ClientID, overrides []policy.GroupRoleOverride) error {
	groupIDs := make([]id.GroupID, len(overrides))
	for i, o := range overrides {
		groupIDs[i] = o.GroupID
	}
	if err := s.requireGroups(ctx, groupIDs); err != nil {
		return err
	}

	conn := txcontext.Conn(ctx, s.db)
	if _, err := conn.ExecContext(ctx,
		`DELETE FROM group_app_role_override WHERE client_id = $1`, clientID.String()); err != nil {
		return fmt.Errorf("clear group role overrides: %w", err)
	}
	for _, o := range overrides {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO group_app_role_override (group_id, client_id, role, granted, override_priority)
			VALUES ($1, $2, $3, $4, $5)`,
			int64(o.GroupID), clientID.String(), o.Role, o.Granted, o.Priority,
		)
		if err != nil {
			return mapWriteError(err, "insert group role override")
		}
	}
	return nil
}

// requireGroups fails with ErrUnknownGroup unless every id names an existing
// group.
func (s *PostgresStore) requireGroups(ctx context.Context, groupIDs []id.GroupID) error {
	if len(groupIDs) == 0 {
		return nil
	}
	raw := make([]int64, 0, len(groupIDs))
	for _, g := range groupIDs {
		if !slices.Contains(raw, int64(g)) {
			raw = append(raw, int64(g))
		}
	}
	var found int
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM permission_groups WHERE id = ANY($1)`, pq.Array(raw),
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("check override groups: %w", err)
	}
	if found != len(raw) {
		return ErrUnknownGroup
	}
	return nil
}

func (s *PostgresStore) queryUserRoles(ctx context.Context, op, query string, clientID id.ClientID, args ...any) ([]policy.UserRoleOverride, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []policy.UserRoleOverride{}
	for rows.Next() {
		o := policy.UserRoleOverride{ClientID: clientID}
		var uid int64
		if err := rows.Scan(&uid, &o.Role, &o.Granted); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		o.UserID = id.UserID(uid)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func mapWriteError(err error, op string) error {
	if err == nil {
		return nil
	}
	if constraint, ok := postgres.ForeignKeyViolation(err); ok {
		switch constraint {
		case "user_app_permission_override_user_id_fkey", "user_app_role_override_user_id_fkey":
			return ErrUnknownUser
		case "group_app_permission_override_group_id_fkey", "group_app_role_override_group_id_fkey":
			return ErrUnknownGroup
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
