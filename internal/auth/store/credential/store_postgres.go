package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"sigil/internal/auth/models"
	"sigil/internal/platform/postgres"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

// ErrAlreadyRegistered is returned when the raw credential id is already
// stored, for this user or any other.
var ErrAlreadyRegistered = fmt.Errorf("credential already registered: %w", sentinel.ErrConflict)

// PostgresStore persists passkeys. The go-webauthn credential is kept as
// JSONB and rows are insert-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListByUUID returns every passkey registered under a user's credential uuid.
func (s *PostgresStore) ListByUUID(ctx context.Context, credentialUUID uuid.UUID) ([]*models.Credential, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, name, credential_uuid, credential_id, serialized_passkey, created_at
		FROM user_webauthn_credentials
		WHERE credential_uuid = $1
		ORDER BY id`, credentialUUID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := []*models.Credential{}
	for rows.Next() {
		var (
			c       models.Credential
			rawID   int64
			passkey []byte
		)
		if err := rows.Scan(&rawID, &c.Name, &c.CredentialUUID, &c.CredentialID, &passkey, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list credentials: scan: %w", err)
		}
		if err := json.Unmarshal(passkey, &c.Passkey); err != nil {
			return nil, fmt.Errorf("decode passkey %d: %w", rawID, err)
		}
		c.ID = id.CredentialID(rawID)
		creds = append(creds, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: iterate: %w", err)
	}
	return creds, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) error {
	passkey, err := json.Marshal(c.Passkey)
	if err != nil {
		return fmt.Errorf("encode passkey: %w", err)
	}
	var rawID int64
	err = txcontext.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO user_webauthn_credentials (name, credential_uuid, credential_id, serialized_passkey)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		c.Name, c.CredentialUUID, c.CredentialID, passkey,
	).Scan(&rawID, &c.CreatedAt)
	if err != nil {
		if _, ok := postgres.UniqueViolation(err); ok {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("create credential: %w", err)
	}
	c.ID = id.CredentialID(rawID)
	return nil
}

