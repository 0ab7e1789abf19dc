// Package service is the OAuth 2.0 / OpenID Connect authorization engine:
// request validation, user approval, code redemption and userinfo.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	client "sigil/internal/client/models"
	identity "sigil/internal/identity/models"
	"sigil/internal/oauth/models"
	"sigil/internal/oauth/store/grant"
	"sigil/internal/oidc"
	"sigil/internal/platform/metrics"
	"sigil/internal/policy"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ClientStore,UserStore,GroupStore,AuthorizationStore,GrantStore,AccessPolicy,SecretVerifier,IDTokenMinter,AuditPublisher

type ClientStore interface {
	FindByID(ctx context.Context, clientID id.ClientID) (*client.Client, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
}

type GroupStore interface {
	ListForUser(ctx context.Context, userID id.UserID) ([]*identity.Group, error)
}

type AuthorizationStore interface {
	Upsert(ctx context.Context, a *models.Authorization) error
	Find(ctx context.Context, userID id.UserID, clientID id.ClientID) (*models.Authorization, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Authorization, error)
	Revoke(ctx context.Context, userID id.UserID, clientID id.ClientID) error
}

// GrantStore holds codes and opaque tokens until they expire.
type GrantStore interface {
	Save(ctx context.Context, kind grant.Kind, g models.Grant) (string, error)
	Lookup(ctx context.Context, kind grant.Kind, token string) (*models.Grant, error)
	Redeem(ctx context.Context, code string) (*models.Grant, error)
}

// AccessPolicy answers whether a user may use an app and which roles they
// hold there.
type AccessPolicy interface {
	IsUserAllowed(ctx context.Context, userID id.UserID, app policy.App) (bool, error)
	UserRoles(ctx context.Context, userID id.UserID, clientID id.ClientID) ([]string, error)
}

type SecretVerifier interface {
	VerifyClientSecret(ctx context.Context, secret, hash string) error
}

type IDTokenMinter interface {
	Mint(in oidc.MintInput) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const subLength = 64

var tracer = otel.Tracer("sigil/oauth")

type Service struct {
	clients        ClientStore
	users          UserStore
	groups         GroupStore
	authorizations AuthorizationStore
	grants         GrantStore
	policy         AccessPolicy
	secrets        SecretVerifier
	minter         IDTokenMinter
	logger         *slog.Logger
	auditor        AuditPublisher
	metrics        *metrics.Metrics
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

// Stores groups the persistence dependencies of New.
type Stores struct {
	Clients        ClientStore
	Users          UserStore
	Groups         GroupStore
	Authorizations AuthorizationStore
	Grants         GrantStore
}

func New(stores Stores, access AccessPolicy, verifier SecretVerifier, minter IDTokenMinter, opts ...Option) *Service {
	s := &Service{
		clients:        stores.Clients,
		users:          stores.Users,
		groups:         stores.Groups,
		authorizations: stores.Authorizations,
		grants:         stores.Grants,
		policy:         access,
		secrets:        verifier,
		minter:         minter,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) findClient(ctx context.Context, clientID string) (*client.Client, error) {
	c, err := s.clients.FindByID(ctx, id.ClientID(clientID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Of(dErrors.CodeUnknownClient)
		}
		return nil, dErrors.Internal(err, "failed to load client")
	}
	return c, nil
}

// Validate checks an authorization request against the client's settings
// and the user's access, stopping at the first failure.
func (s *Service) Validate(ctx context.Context, userID id.UserID, c *client.Client, req models.AuthorizeRequest) error {
	if c.IsDisabled {
		return dErrors.Of(dErrors.CodeAppDisabled)
	}

	for _, rt := range req.ResponseTypes() {
		var allowed bool
		switch rt {
		case models.ResponseTypeCode:
			allowed = c.AllowExplicitFlow
		case models.ResponseTypeToken, models.ResponseTypeIDToken:
			allowed = c.AllowImplicitFlow
		}
		if !allowed {
			return dErrors.Other(dErrors.CodeInvalidResponseType,
				"Response type "+rt+" is not supported by this app. Check the app settings or the response_type parameter.")
		}
	}

	if !client.IsSafeRedirectURI(req.RedirectURI) || !c.HasRedirectURI(req.RedirectURI) {
		return dErrors.InvalidRedirectURI(req.RedirectURI)
	}

	allowed, err := s.policy.IsUserAllowed(ctx, userID, c.App())
	if err != nil {
		return dErrors.Internal(err, "failed to resolve access")
	}
	if !allowed {
		return dErrors.ACLDenied(c.AppName)
	}

	switch req.ResponseMode {
	case "", models.ResponseModeQuery, models.ResponseModeFragment:
	default:
		return dErrors.Of(dErrors.CodeInvalidResponseMode)
	}
	return nil
}

// Preview validates the request so the consent screen can show the app.
func (s *Service) Preview(ctx context.Context, userID id.UserID, req models.AuthorizeRequest) (*models.Preview, error) {
	ctx, span := tracer.Start(ctx, "oauth.Preview")
	defer span.End()

	c, err := s.findClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(ctx, userID, c, req); err != nil {
		return nil, err
	}
	return &models.Preview{Client: c}, nil
}

// ListAuthorizations returns every app the user has approved, revoked ones
// included.
func (s *Service) ListAuthorizations(ctx context.Context, userID id.UserID) ([]*models.Authorization, error) {
	list, err := s.authorizations.ListForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list authorizations")
	}
	return list, nil
}

// RevokeAuthorization withdraws the user's approval of an app. Grants already
// issued to the app fail their next check.
func (s *Service) RevokeAuthorization(ctx context.Context, userID id.UserID, clientID id.ClientID) error {
	if err := s.authorizations.Revoke(ctx, userID, clientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Of(dErrors.CodeUnknownClient)
		}
		return dErrors.Internal(err, "failed to revoke authorization")
	}
	s.logAudit(ctx, audit.EventAuthorizationRevoked, userID, clientID)
	return nil
}

// idToken gathers the user's groups and roles for c and mints an id token.
func (s *Service) idToken(ctx context.Context, u *identity.User, clientID id.ClientID, sub, nonce string) (string, error) {
	groups, err := s.groups.ListForUser(ctx, u.ID)
	if err != nil {
		return "", err
	}
	slugs := make([]string, 0, len(groups))
	for _, g := range groups {
		slugs = append(slugs, g.Slug)
	}
	roles, err := s.policy.UserRoles(ctx, u.ID, clientID)
	if err != nil {
		return "", err
	}
	return s.minter.Mint(oidc.MintInput{
		User:     u,
		ClientID: clientID,
		Sub:      sub,
		Groups:   slugs,
		Roles:    roles,
		Nonce:    nonce,
	})
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, clientID id.ClientID, attributes ...any) {
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"user_id", userID.String(),
		"client_id", clientID.String(),
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
		ClientID:  clientID.String(),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", ev.Action, "error", err)
	}
}
