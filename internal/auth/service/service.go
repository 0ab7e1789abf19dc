// Package service runs the passkey ceremonies and the refresh-session
// lifecycle. It never stores ceremony state: the go-webauthn session data is
// signed into a short-lived challenge token that the browser echoes back.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"sigil/internal/auth/ceremony"
	"sigil/internal/auth/models"
	identity "sigil/internal/identity/models"
	jwttoken "sigil/internal/jwt_token"
	"sigil/internal/platform/metrics"
	"sigil/pkg/attrs"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/idgen"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,CredentialStore,SessionStore,Ceremony,Hasher,AuditPublisher

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
	FindByCredentialUUID(ctx context.Context, credentialUUID uuid.UUID) (*identity.User, error)
}

type CredentialStore interface {
	ListByUUID(ctx context.Context, credentialUUID uuid.UUID) ([]*models.Credential, error)
	Create(ctx context.Context, c *models.Credential) error
}

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Rotate(ctx context.Context, sessionID id.SessionID, oldHash, newHash string, now time.Time) error
	Delete(ctx context.Context, sessionID id.SessionID) error
}

// Ceremony is the WebAuthn relying party.
type Ceremony interface {
	BeginRegistration(acct *ceremony.Account) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	FinishRegistration(acct *ceremony.Account, session webauthn.SessionData, raw []byte) (*webauthn.Credential, error)
	BeginLogin() (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	FinishLogin(acct *ceremony.Account, session webauthn.SessionData, raw []byte) (*webauthn.Credential, error)
}

// Hasher generates and checks refresh secrets on a bounded worker pool.
type Hasher interface {
	NewSecret(ctx context.Context) (raw, hash string, err error)
	Verify(ctx context.Context, secret, phc string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	kindRegistration = "registration"
	kindLogin        = "login"
	phaseStart       = "start"
	phaseFinish      = "finish"
	outcomeOK        = "ok"
)

var tracer = otel.Tracer("sigil/auth")

type Service struct {
	users       UserStore
	credentials CredentialStore
	sessions    SessionStore
	ceremony    Ceremony
	hasher      Hasher
	tokens      *jwttoken.Codec
	ids         idgen.Generator
	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(
	users UserStore,
	credentials CredentialStore,
	sessions SessionStore,
	rp Ceremony,
	hasher Hasher,
	tokens *jwttoken.Codec,
	ids idgen.Generator,
	opts ...Option,
) *Service {
	s := &Service{
		users:       users,
		credentials: credentials,
		sessions:    sessions,
		ceremony:    rp,
		hasher:      hasher,
		tokens:      tokens,
		ids:         ids,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadActiveUser reloads a user and rejects deleted or suspended accounts.
func (s *Service) loadActiveUser(ctx context.Context, userID id.UserID) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Of(dErrors.CodeUserDeleted)
		}
		return nil, dErrors.Internal(err, "failed to load user")
	}
	if u.IsSuspended {
		return nil, dErrors.Of(dErrors.CodeUserSuspended)
	}
	return u, nil
}

func (s *Service) recordCeremony(ctx context.Context, kind, phase string, userID id.UserID, err error) {
	if err == nil {
		s.metrics.IncrementCeremony(kind, phase, outcomeOK)
		return
	}
	outcome := string(dErrors.CodeInternal)
	if de, ok := dErrors.As(err); ok {
		outcome = string(de.Code)
	}
	s.metrics.IncrementCeremony(kind, phase, outcome)
	if phase == phaseFinish {
		s.logAudit(ctx, audit.EventAuthFailed, userID, "kind", kind, "reason", outcome)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, attributes ...any) {
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"user_id", userID.String(),
	)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditor == nil {
		return
	}
	ev := audit.Event{
		UserID:    userID,
		Subject:   userID.String(),
		Action:    string(event),
		SessionID: attrs.ExtractString(attributes, "session_id"),
		Reason:    attrs.ExtractString(attributes, "reason"),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", ev.Action, "error", err)
	}
}
