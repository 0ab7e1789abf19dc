package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sigil/internal/client/models"
	"sigil/internal/platform/postgres"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	txcontext "sigil/pkg/platform/tx"
)

const clientColumns = `client_id, client_secret_hash, app_name, app_description, redirect_uris,
	is_managed, is_disabled, default_allowed, allow_explicit_flow, allow_implicit_flow, created_at`

// PostgresStore persists registered OAuth clients. Redirect URIs live in a
// text[] column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Client, error) {
	rows, err := txcontext.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at, client_id`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []*models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("list clients: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clients: iterate: %w", err)
	}
	return clients, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	row := txcontext.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE client_id = $1`, clientID.String())
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find client by id: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Client) error {
	_, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ClientID.String(), c.ClientSecretHash, c.AppName, c.AppDescription, pq.Array(c.RedirectURIs),
		c.IsManaged, c.IsDisabled, c.DefaultAllowed, c.AllowExplicitFlow, c.AllowImplicitFlow, c.CreatedAt,
	)
	if err != nil {
		if _, ok := postgres.UniqueViolation(err); ok {
			return fmt.Errorf("create client: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// Update writes every mutable column including the secret hash, so secret
// rotation goes through here too.
func (s *PostgresStore) Update(ctx context.Context, c *models.Client) error {
	res, err := txcontext.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE clients SET
			client_secret_hash = $1, app_name = $2, app_description = $3, redirect_uris = $4,
			is_managed = $5, is_disabled = $6, default_allowed = $7,
			allow_explicit_flow = $8, allow_implicit_flow = $9
		WHERE client_id = $10`,
		c.ClientSecretHash, c.AppName, c.AppDescription, pq.Array(c.RedirectURIs),
		c.IsManaged, c.IsDisabled, c.DefaultAllowed,
		c.AllowExplicitFlow, c.AllowImplicitFlow, c.ClientID.String(),
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (*models.Client, error) {
	var (
		c    models.Client
		raw  string
		uris pq.StringArray
	)
	if err := row.Scan(&raw, &c.ClientSecretHash, &c.AppName, &c.AppDescription, &uris,
		&c.IsManaged, &c.IsDisabled, &c.DefaultAllowed, &c.AllowExplicitFlow, &c.AllowImplicitFlow, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ClientID = id.ClientID(raw)
	c.RedirectURIs = []string(uris)
	if c.RedirectURIs == nil {
		c.RedirectURIs = []string{}
	}
	return &c, nil
}
