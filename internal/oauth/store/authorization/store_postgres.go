package authorization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sigil/internal/oauth/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

// PostgresStore persists user approvals of client applications.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Upsert records an approval. The sub in a is used only when the row is
// new; an existing row keeps its sub, is un-revoked and gets last_used
// bumped. The stored row is written back into a.
func (s *PostgresStore) Upsert(ctx context.Context, a *models.Authorization) error {
	var rawUser int64
	var clientID string
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO user_app_authorizations (user_id, client_id, sub, last_used, revoked)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (user_id, client_id) DO UPDATE
			SET last_used = EXCLUDED.last_used, revoked = FALSE
		RETURNING user_id, client_id, sub, last_used, revoked`,
		int64(a.UserID), a.ClientID.String(), a.Sub, a.LastUsed,
	).Scan(&rawUser, &clientID, &a.Sub, &a.LastUsed, &a.Revoked)
	if err != nil {
		return fmt.Errorf("upsert authorization: %w", err)
	}
	a.UserID = id.UserID(rawUser)
	a.ClientID = id.ClientID(clientID)
	return nil
}

// Find returns sentinel.ErrNotFound when the user never approved the client.
// Revoked rows are returned; callers decide what revoked means.
func (s *PostgresStore) Find(ctx context.Context, userID id.UserID, clientID id.ClientID) (*models.Authorization, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT user_id, client_id, sub, last_used, revoked
		FROM user_app_authorizations
		WHERE user_id = $1 AND client_id = $2`,
		int64(userID), clientID.String())
	a, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find authorization: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Authorization, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT user_id, client_id, sub, last_used, revoked
		FROM user_app_authorizations
		WHERE user_id = $1
		ORDER BY last_used DESC, client_id`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list authorizations: %w", err)
	}
	defer rows.Close()

	out := []*models.Authorization{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list authorizations: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list authorizations: iterate: %w", err)
	}
	return out, nil
}

// Revoke marks the approval revoked. Outstanding grants stop working at
// their next use because every redemption rechecks the record.
func (s *PostgresStore) Revoke(ctx context.Context, userID id.UserID, clientID id.ClientID) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE user_app_authorizations SET revoked = TRUE WHERE user_id = $1 AND client_id = $2`,
		int64(userID), clientID.String())
	if err != nil {
		return fmt.Errorf("revoke authorization: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Authorization, error) {
	var (
		a        models.Authorization
		rawUser  int64
		clientID string
	)
	if err := row.Scan(&rawUser, &clientID, &a.Sub, &a.LastUsed, &a.Revoked); err != nil {
		return nil, err
	}
	a.UserID = id.UserID(rawUser)
	a.ClientID = id.ClientID(clientID)
	return &a, nil
}
