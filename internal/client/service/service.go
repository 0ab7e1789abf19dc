package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"sigil/internal/auth/secrets"
	"sigil/internal/client/models"
	"sigil/internal/client/store/overrides"
	"sigil/internal/policy"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/idgen"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ClientStore,OverrideStore,SecretHasher,AuditPublisher,TxRunner

type ClientStore interface {
	List(ctx context.Context) ([]*models.Client, error)
	FindByID(ctx context.Context, clientID id.ClientID) (*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
	Update(ctx context.Context, c *models.Client) error
}

type OverrideStore interface {
	ListUserPermissionOverrides(ctx context.Context, clientID id.ClientID) ([]policy.UserPermissionOverride, error)
	ListGroupPermissionOverrides(ctx context.Context, clientID id.ClientID) ([]policy.GroupPermissionOverride, error)
	ListUserRoleOverridesForClient(ctx context.Context, clientID id.ClientID) ([]policy.UserRoleOverride, error)
	ListGroupRoleOverrides(ctx context.Context, clientID id.ClientID) ([]policy.GroupRoleOverride, error)
	SetUserPermission(ctx context.Context, o policy.UserPermissionOverride) error
	DeleteUserPermission(ctx context.Context, userID id.UserID, clientID id.ClientID) error
	SetUserRole(ctx context.Context, o policy.UserRoleOverride) error
	DeleteUserRole(ctx context.Context, userID id.UserID, clientID id.ClientID, role string) error
	ReplaceGroupPermissions(ctx context.Context, clientID id.ClientID, overrides []policy.GroupPermissionOverride) error
	ReplaceGroupRoles(ctx context.Context, clientID id.ClientID, overrides []policy.GroupRoleOverride) error
}

// SecretHasher bcrypt-hashes client secrets off the request goroutine pool.
type SecretHasher interface {
	HashClientSecret(ctx context.Context, secret string) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages OAuth client registrations and their access overrides.
type Service struct {
	clients   ClientStore
	overrides OverrideStore
	hasher    SecretHasher
	ids       idgen.Generator
	tx        TxRunner
	logger    *slog.Logger
	auditor   AuditPublisher
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

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(clients ClientStore, overrideStore OverrideStore, hasher SecretHasher, ids idgen.Generator, opts ...Option) *Service {
	s := &Service{
		clients:   clients,
		overrides: overrideStore,
		hasher:    hasher,
		ids:       ids,
		tx:        noTx{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListClients(ctx context.Context) ([]*models.Client, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list clients")
	}
	return clients, nil
}

// GetClient returns the client with every override attached to it.
func (s *Service) GetClient(ctx context.Context, clientID id.ClientID) (*models.Detail, error) {
	c, err := s.findClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	d := &models.Detail{Client: c}
	if d.UserPermissionOverrides, err = s.overrides.ListUserPermissionOverrides(ctx, clientID); err != nil {
		return nil, dErrors.Internal(err, "failed to load user permission overrides")
	}
	if d.GroupPermissionOverrides, err = s.overrides.ListGroupPermissionOverrides(ctx, clientID); err != nil {
		return nil, dErrors.Internal(err, "failed to load group permission overrides")
	}
	if d.UserRoleOverrides, err = s.overrides.ListUserRoleOverridesForClient(ctx, clientID); err != nil {
		return nil, dErrors.Internal(err, "failed to load user role overrides")
	}
	if d.GroupRoleOverrides, err = s.overrides.ListGroupRoleOverrides(ctx, clientID); err != nil {
		return nil, dErrors.Internal(err, "failed to load group role overrides")
	}
	return d, nil
}

// CreateClient registers a new client. The plaintext secret is returned once
// and only its hash is stored.
func (s *Service) CreateClient(ctx context.Context, in models.ClientInput) (*models.Created, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	secret, hash, err := s.newSecret(ctx)
	if err != nil {
		return nil, err
	}
	clientID := id.ClientID(strconv.FormatInt(s.ids.NextID(), 10))
	c, err := models.NewClient(clientID, hash, in, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, dErrors.Internal(err, "failed to create client")
	}

	s.logAudit(ctx, audit.EventClientCreated, c.ClientID, "app_name", c.AppName)
	return &models.Created{Client: c, ClientSecret: secret}, nil
}

// UpdateClient replaces every admin-editable field.
func (s *Service) UpdateClient(ctx context.Context, clientID id.ClientID, in models.ClientInput) (*models.Client, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.mutableClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.Apply(in)
	if err := s.clients.Update(ctx, c); err != nil {
		return nil, wrapClientErr(err, "failed to update client")
	}

	s.logAudit(ctx, audit.EventClientUpdated, c.ClientID)
	return c, nil
}

// RotateSecret replaces the client secret. The old secret stops working
// immediately.
func (s *Service) RotateSecret(ctx context.Context, clientID id.ClientID) (*models.Created, error) {
	c, err := s.mutableClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	secret, hash, err := s.newSecret(ctx)
	if err != nil {
		return nil, err
	}
	c.ClientSecretHash = hash
	if err := s.clients.Update(ctx, c); err != nil {
		return nil, wrapClientErr(err, "failed to rotate client secret")
	}

	s.logAudit(ctx, audit.EventClientSecretRotated, c.ClientID)
	return &models.Created{Client: c, ClientSecret: secret}, nil
}

// SetGroupPermissionOverrides atomically replaces the client's group
// permission overrides.
func (s *Service) SetGroupPermissionOverrides(
	ctx context.Context,
	clientID id.ClientID,
	in []policy.GroupPermissionOverride,
) (*models.GroupPermissionOverrides, error) {
	if err := models.ValidateGroupPermissionOverrides(in); err != nil {
		return nil, err
	}
	for i := range in {
		in[i].ClientID = clientID
	}

	var c *models.Client
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.findClient(ctx, clientID); err != nil {
			return err
		}
		return s.overrides.ReplaceGroupPermissions(ctx, clientID, in)
	})
	if err != nil {
		return nil, wrapOverrideErr(err, "failed to replace group permission overrides")
	}

	s.logAudit(ctx, audit.EventOverridesChanged, clientID, "kind", "group_permission", "count", len(in))
	return &models.GroupPermissionOverrides{Client: c, Overrides: nonNil(in)}, nil
}

func (s *Service) SetGroupRoleOverrides(
	ctx context.Context,
	clientID id.ClientID,
	in []policy.GroupRoleOverride,
) (*models.GroupRoleOverrides, error) {
	if err := models.ValidateGroupRoleOverrides(in); err != nil {
		return nil, err
	}
	for i := range in {
		in[i].ClientID = clientID
	}

	var c *models.Client
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if c, err = s.findClient(ctx, clientID); err != nil {
			return err
		}
		return s.overrides.ReplaceGroupRoles(ctx, clientID, in)
	})
	if err != nil {
		return nil, wrapOverrideErr(err, "failed to replace group role overrides")
	}

	s.logAudit(ctx, audit.EventOverridesChanged, clientID, "kind", "group_role", "count", len(in))
	return &models.GroupRoleOverrides{Client: c, Overrides: nonNil(in)}, nil
}

func (s *Service) SetUserPermission(ctx context.Context, clientID id.ClientID, userID id.UserID, granted bool) error {
	if _, err := s.findClient(ctx, clientID); err != nil {
		return err
	}
	o := policy.UserPermissionOverride{UserID: userID, ClientID: clientID, Granted: granted}
	if err := s.overrides.SetUserPermission(ctx, o); err != nil {
		return wrapOverrideErr(err, "failed to set user permission override")
	}
	s.logAudit(ctx, audit.EventOverridesChanged, clientID, "kind", "user_permission", "target_user_id", userID.String())
	return nil
}

func (s *Service) DeleteUserPermission(ctx context.Context, clientID id.ClientID, userID id.UserID) error {
	if _, err := s.findClient(ctx, clientID); err != nil {
		return err
	}
	if err := s.overrides.DeleteUserPermission(ctx, userID, clientID); err != nil {
		return dErrors.Internal(err, "failed to delete user permission override")
	}
	s.logAudit(ctx, audit.EventOverridesChanged, clientID, "kind", "user_permission", "target_user_id", userID.String())
	return nil
}

func (s *Service) SetUserRole(ctx context.Context, clientID id.ClientID, userID id.UserID, role string, granted bool) error {
	if err := models.ValidateRole(role); err != nil {
		return err
	}
	if _, err := s.findClient(ctx, clientID); err != nil {
		return err
	}
	o := policy.UserRoleOverride{UserID: userID, ClientID: clientID, Role: role, Granted: granted}
	if err := s.overrides.SetUserRole(ctx, o); err != nil {
		return wrapOverrideErr(err, "failed to set user role override")
	}
	s.logAudit(ctx, audit.EventOverridesChanged, clientID, "kind", "user_role", "target_user_id", userID.String(), "role", role)
	return nil
}

func (s *Service) DeleteUserRole(ctx context.Context, clientID id.ClientID, userID id.UserID, role string) error {
	if _, err := s.findClient(ctx, clientID); err != nil {
		return err
	}
	if err := s.overrides.DeleteUserRole(ctx, userID, clientID, role); err != nil {
		return dErrors.Internal(err, "failed to delete user role override")
	}
	s.logAudit(ctx, audit.EventOverridesChanged, clientID, "kind", "user_role", "target_user_id", userID.String(), "role", role)
	return nil
}

func (s *Service) findClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	c, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, wrapClientErr(err, "failed to load client")
	}
	return c, nil
}

// mutableClient loads a client that admins are allowed to edit.
func (s *Service) mutableClient(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	c, err := s.findClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.IsManaged {
		return nil, dErrors.Of(dErrors.CodeManagedObject)
	}
	return c, nil
}

func (s *Service) newSecret(ctx context.Context) (secret, hash string, err error) {
	secret, err = secrets.Generate()
	if err != nil {
		return "", "", dErrors.Internal(err, "failed to generate client secret")
	}
	hash, err = s.hasher.HashClientSecret(ctx, secret)
	if err != nil {
		return "", "", dErrors.Internal(err, "failed to hash client secret")
	}
	return secret, hash, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, clientID id.ClientID, attributes ...any) {
	actor := requestcontext.UserID(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"client_id", clientID.String(),
	)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if !actor.IsNil() {
		args = append(args, "actor_id", actor.String())
	}
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditor == nil {
		return
	}
	ev := audit.Event{
		UserID:   actor,
		Subject:  clientID.String(),
		Action:   string(event),
		ClientID: clientID.String(),
	}
	if !actor.IsNil() {
		ev.ActorID = actor.String()
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", ev.Action, "error", err)
	}
}

func wrapClientErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Of(dErrors.CodeUnknownClient)
	}
	return dErrors.Internal(err, msg)
}

func wrapOverrideErr(err error, msg string) error {
	switch {
	case errors.Is(err, overrides.ErrUnknownUser):
		return dErrors.Of(dErrors.CodeUnknownUser)
	case errors.Is(err, overrides.ErrUnknownGroup):
		return dErrors.Of(dErrors.CodeUnknownGroup)
	}
	return wrapClientErr(err, msg)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
