package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sigil/internal/identity/models"
	"sigil/internal/platform/postgres"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

var ErrSlugTaken = fmt.Errorf("group slug taken: %w", sentinel.ErrConflict)

const groupColumns = `g.id, g.slug, g.name, g.description, g.is_managed`

// PostgresStore persists permission groups and their memberships.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Group, error) {
	return s.queryGroups(ctx, "list groups",
		`SELECT `+groupColumns+` FROM permission_groups g ORDER BY g.id`)
}

// ListForUser returns the groups userID belongs to.
func (s *PostgresStore) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Group, error) {
	return s.queryGroups(ctx, "list groups for user", `
		SELECT `+groupColumns+` FROM permission_groups g
		JOIN permission_group_membership m ON g.id = m.group_id
		WHERE m.user_id = $1
		ORDER BY g.id`, int64(userID))
}

// ListGroupIDsForUser feeds the policy resolver.
func (s *PostgresStore) ListGroupIDsForUser(ctx context.Context, userID id.UserID) ([]id.GroupID, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT group_id FROM permission_group_membership WHERE user_id = $1`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list group ids for user: %w", err)
	}
	defer rows.Close()

	var ids []id.GroupID
	for rows.Next() {
		var raw int64
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id.GroupID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM permission_groups g WHERE g.id = $1`, int64(groupID))
	return findOne(row, "find group by id")
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Group, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM permission_groups g WHERE g.slug = $1`, slug)
	return findOne(row, "find group by slug")
}

func (s *PostgresStore) Create(ctx context.Context, g *models.Group) error {
	var raw int64
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO permission_groups (slug, name, description, is_managed)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		g.Slug, g.Name, g.Description, g.IsManaged,
	).Scan(&raw)
	if err != nil {
		return mapWriteError(err, "create group")
	}
	g.ID = id.GroupID(raw)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, g *models.Group) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE permission_groups SET slug = $1, name = $2, description = $3, is_managed = $4
		WHERE id = $5`,
		g.Slug, g.Name, g.Description, g.IsManaged, int64(g.ID),
	)
	if err != nil {
		return mapWriteError(err, "update group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListMembers returns the users in groupID.
func (s *PostgresStore) ListMembers(ctx context.Context, groupID id.GroupID) ([]*models.User, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT u.id, u.email, u.username, u.name, u.is_suspended, u.credential_uuid, u.is_admin, u.created_at
		FROM users u
		JOIN permission_group_membership m ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY u.id`, int64(groupID))
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	members := []*models.User{}
	for rows.Next() {
		var (
			u     models.User
			rawID int64
		)
		if err := rows.Scan(&rawID, &u.Email, &u.Username, &u.Name, &u.IsSuspended, &u.CredentialUUID, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		u.ID = id.UserID(rawID)
		members = append(members, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return members, nil
}

// AddMember is idempotent: adding an existing member succeeds.
func (s *PostgresStore) AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO permission_group_membership (group_id, user_id) VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		int64(groupID), int64(userID),
	)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember returns sentinel.ErrNotFound when the user was not a member.
func (s *PostgresStore) RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM permission_group_membership WHERE group_id = $1 AND user_id = $2`,
		int64(groupID), int64(userID),
	)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryGroups(ctx context.Context, op, query string, args ...any) ([]*models.Group, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	groups := []*models.Group{}
	for rows.Next() {
		var (
			g   models.Group
			raw int64
		)
		if err := rows.Scan(&raw, &g.Slug, &g.Name, &g.Description, &g.IsManaged); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		g.ID = id.GroupID(raw)
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return groups, nil
}

func findOne(row *sql.Row, op string) (*models.Group, error) {
	var (
		g   models.Group
		raw int64
	)
	if err := row.Scan(&raw, &g.Slug, &g.Name, &g.Description, &g.IsManaged); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.ID = id.GroupID(raw)
	return &g, nil
}

func mapWriteError(err error, op string) error {
	if constraint, ok := postgres.UniqueViolation(err); ok {
		if constraint == "permission_groups_slug_key" {
			return ErrSlugTaken
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
