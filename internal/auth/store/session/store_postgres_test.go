package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"sigil/internal/auth/models"
	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.store = NewPostgres(db)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *PostgresStoreSuite) TestCreate() {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sess := &models.Session{
		SessionID:       42,
		UserID:          7,
		CredentialID:    3,
		RefreshHash:     "$argon2id$hash",
		DeviceName:      "Firefox on Linux",
		CreatedAt:       now,
		LastRefreshedAt: now,
	}
	s.mock.ExpectExec(`INSERT INTO user_sessions`).
		WithArgs(int64(42), int64(7), int64(3), "$argon2id$hash", "Firefox on Linux", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.Require().NoError(s.store.Create(context.Background(), sess))
}

func (s *PostgresStoreSuite) TestFindByID() {
	s.Run("found", func() {
		now := time.Now()
		s.mock.ExpectQuery(`FROM user_sessions\s+WHERE session_id = \$1`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"session_id", "user_id", "credential_id", "refresh_hash", "device_name", "created_at", "last_refreshed_at"}).
				AddRow(int64(42), int64(7), int64(3), "h", "Safari on iOS", now, now))

		sess, err := s.store.FindByID(context.Background(), 42)
		s.Require().NoError(err)
		s.Equal(id.UserID(7), sess.UserID)
		s.Equal(id.CredentialID(3), sess.CredentialID)
		s.Equal("Safari on iOS", sess.DeviceName)
	})

	s.Run("missing", func() {
		s.mock.ExpectQuery(`FROM user_sessions`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.store.FindByID(context.Background(), 99)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestRotate() {
	now := time.Now()

	s.Run("matching hash", func() {
		s.mock.ExpectExec(`UPDATE user_sessions SET refresh_hash = \$1`).
			WithArgs("new", now, int64(42), "old").
			WillReturnResult(sqlmock.NewResult(0, 1))

		s.NoError(s.store.Rotate(context.Background(), 42, "old", "new", now))
	})

	s.Run("stale hash loses the race", func() {
		s.mock.ExpectExec(`UPDATE user_sessions SET refresh_hash = \$1`).
			WithArgs("new", now, int64(42), "old").
			WillReturnResult(sqlmock.NewResult(0, 0))

		s.ErrorIs(s.store.Rotate(context.Background(), 42, "old", "new", now), sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestDeleteMissingIsNotAnError() {
	s.mock.ExpectExec(`DELETE FROM user_sessions WHERE session_id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(s.store.Delete(context.Background(), 5))
}
