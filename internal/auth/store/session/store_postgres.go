package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sigil/internal/auth/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

// PostgresStore keeps one row per live refresh session. Only the hash of the
// refresh secret is stored.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO user_sessions (session_id, user_id, credential_id, refresh_hash, device_name, created_at, last_refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(session.SessionID), int64(session.UserID), int64(session.CredentialID),
		session.RefreshHash, session.DeviceName, session.CreatedAt, session.LastRefreshedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByID returns sentinel.ErrNotFound for unknown or revoked sessions.
func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	var (
		sess                          models.Session
		rawID, rawUser, rawCredential int64
	)
	err := txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT session_id, user_id, credential_id, refresh_hash, device_name, created_at, last_refreshed_at
		FROM user_sessions
		WHERE session_id = $1`, int64(sessionID),
	).Scan(&rawID, &rawUser, &rawCredential, &sess.RefreshHash, &sess.DeviceName, &sess.CreatedAt, &sess.LastRefreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	sess.SessionID = id.SessionID(rawID)
	sess.UserID = id.UserID(rawUser)
	sess.CredentialID = id.CredentialID(rawCredential)
	return &sess, nil
}

// Rotate swaps the refresh hash only if it still equals oldHash. Two
// concurrent refreshes of the same secret race here and exactly one wins;
// the loser sees sentinel.ErrNotFound.
func (s *PostgresStore) Rotate(ctx context.Context, sessionID id.SessionID, oldHash, newHash string, now time.Time) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE user_sessions SET refresh_hash = $1, last_refreshed_at = $2
		WHERE session_id = $3 AND refresh_hash = $4`,
		newHash, now, int64(sessionID), oldHash,
	)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete is idempotent.
func (s *PostgresStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM user_sessions WHERE session_id = $1`, int64(sessionID))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
