package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sigil/internal/identity/models"
	"sigil/internal/platform/postgres"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

var (
	ErrUsernameTaken = fmt.Errorf("username taken: %w", sentinel.ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email taken: %w", sentinel.ErrConflict)
)

const userColumns = `id, email, username, name, is_suspended, credential_uuid, is_admin, created_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, int64(userID))
	return findOne(row, "find user by id")
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return findOne(row, "find user by username")
}

func (s *PostgresStore) FindByCredentialUUID(ctx context.Context, credentialUUID uuid.UUID) (*models.User, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE credential_uuid = $1`, credentialUUID)
	return findOne(row, "find user by credential uuid")
}

// Create inserts u and fills in the generated id and creation time.
func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	var rawID int64
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO users (email, username, name, is_suspended, credential_uuid, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		u.Email, u.Username, u.Name, u.IsSuspended, u.CredentialUUID, u.IsAdmin,
	).Scan(&rawID, &u.CreatedAt)
	if err != nil {
		return mapWriteError(err, "create user")
	}
	u.ID = id.UserID(rawID)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE users SET email = $1, username = $2, name = $3, is_suspended = $4, is_admin = $5
		WHERE id = $6`,
		u.Email, u.Username, u.Name, u.IsSuspended, u.IsAdmin, int64(u.ID),
	)
	if err != nil {
		return mapWriteError(err, "update user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u     models.User
		rawID int64
	)
	if err := row.Scan(&rawID, &u.Email, &u.Username, &u.Name, &u.IsSuspended, &u.CredentialUUID, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.ID = id.UserID(rawID)
	return &u, nil
}

func findOne(row *sql.Row, op string) (*models.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func mapWriteError(err error, op string) error {
	if constraint, ok := postgres.UniqueViolation(err); ok {
		switch constraint {
		case "users_username_key":
			return ErrUsernameTaken
		case "users_email_key":
			return ErrEmailTaken
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
