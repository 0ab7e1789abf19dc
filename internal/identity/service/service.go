package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	jwttoken "sigil/internal/jwt_token"
	"sigil/internal/identity/models"
	"sigil/internal/identity/store/group"
	"sigil/internal/identity/store/user"
	"sigil/internal/mail"
	"sigil/internal/platform/metrics"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	authmw "sigil/pkg/platform/middleware/auth"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,GroupStore,Mailer,AuditPublisher,TxRunner

type UserStore interface {
	List(ctx context.Context) ([]*models.User, error)
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
}

type GroupStore interface {
	List(ctx context.Context) ([]*models.Group, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*models.Group, error)
	FindByID(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	FindBySlug(ctx context.Context, slug string) (*models.Group, error)
	Create(ctx context.Context, g *models.Group) error
	Update(ctx context.Context, g *models.Group) error
	ListMembers(ctx context.Context, groupID id.GroupID) ([]*models.User, error)
	AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error
	RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) error
}

type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner scopes a unit of work to one database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AdminGroupSlug names the managed group created by setup.
const AdminGroupSlug = "admin"

// Service manages users, groups and memberships, and issues registration
// links.
type Service struct {
	users   UserStore
	groups  GroupStore
	tokens  *jwttoken.Codec
	issuer  string
	mailer  Mailer
	tx      TxRunner
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
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

func WithMailer(m Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// New constructs a Service. issuer is the public base URL used in
// registration links.
func New(users UserStore, groups GroupStore, tokens *jwttoken.Codec, issuer string, opts ...Option) *Service {
	s := &Service{
		users:  users,
		groups: groups,
		tokens: tokens,
		issuer: issuer,
		logger: slog.Default(),
		tx:     noTx{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer == nil {
		s.mailer = mail.NewLogMailer(s.logger)
	}
	return s
}

// LoadPrincipal satisfies the auth middleware. A missing user surfaces as
// sentinel.ErrNotFound so the middleware can answer user_deleted.
func (s *Service) LoadPrincipal(ctx context.Context, userID id.UserID) (*authmw.Principal, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &authmw.Principal{UserID: u.ID, IsAdmin: u.IsAdmin, IsSuspended: u.IsSuspended}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list users")
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return u, nil
}

// GetUserWithGroups returns the user and the groups they belong to.
func (s *Service) GetUserWithGroups(ctx context.Context, userID id.UserID) (*models.UserWithGroups, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.ListForUser(ctx, u.ID)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list user groups")
	}
	return &models.UserWithGroups{User: u, Groups: groups}, nil
}

func (s *Service) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	u := &models.User{
		Email:          in.Email,
		Username:       in.Username,
		Name:           in.Name,
		IsSuspended:    in.IsSuspended,
		IsAdmin:        in.IsAdmin,
		CredentialUUID: uuid.New(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, wrapUserWriteErr(err, "failed to create user")
	}

	s.logAudit(ctx, audit.EventUserCreated, u.ID)
	s.metrics.IncrementUsersCreated()
	return u, nil
}

// UpdateUser replaces every admin-editable field. The credential uuid is
// never touched so existing passkeys keep working.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, in models.UserInput) (*models.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	u.Email = in.Email
	u.Username = in.Username
	u.Name = in.Name
	u.IsSuspended = in.IsSuspended
	u.IsAdmin = in.IsAdmin

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Of(dErrors.CodeUnknownUser)
		}
		return nil, wrapUserWriteErr(err, "failed to update user")
	}

	s.logAudit(ctx, audit.EventUserUpdated, u.ID)
	return u, nil
}

// RegistrationLink signs a registration intent for u and returns the link
// the user opens to enroll a passkey.
func (s *Service) RegistrationLink(u *models.User) (string, error) {
	claims := jwttoken.RegistrationClaims{
		UserID:           u.ID,
		Email:            u.Email,
		Username:         u.Username,
		Name:             u.Name,
		RegisteredClaims: s.tokens.Stamp(jwttoken.PurposeRegistration),
	}
	token, err := s.tokens.Encode(jwttoken.PurposeRegistration, &claims)
	if err != nil {
		return "", fmt.Errorf("encode registration token: %w", err)
	}
	return s.issuer + "/auth/register/passkey?t=" + url.QueryEscape(token), nil
}

// RegistrationLinkForUsername backs the get-login-link command.
func (s *Service) RegistrationLinkForUsername(ctx context.Context, username string) (*models.User, string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", wrapUserErr(err)
	}
	link, err := s.RegistrationLink(u)
	if err != nil {
		return nil, "", dErrors.Internal(err, "failed to build registration link")
	}
	return u, link, nil
}

func (s *Service) SendRegistrationLink(ctx context.Context, userID id.UserID) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return wrapUserErr(err)
	}
	return s.MailRegistrationLink(ctx, u)
}

func (s *Service) MailRegistrationLink(ctx context.Context, u *models.User) error {
	link, err := s.RegistrationLink(u)
	if err != nil {
		return dErrors.Internal(err, "failed to build registration link")
	}
	origin := s.issuer
	if parsed, err := url.Parse(s.issuer); err == nil && parsed.Host != "" {
		origin = parsed.Hostname()
	}

	msg := mail.NewRegistrationMessage(u.Name, u.Username, u.Email, link, origin)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send registration mail",
			"user_id", u.ID.String(),
			"error", err,
		)
		return dErrors.Internal(err, "failed to send registration mail")
	}
	s.logAudit(ctx, audit.EventRegistrationSent, u.ID)
	return nil
}

func (s *Service) ListGroups(ctx context.Context) ([]*models.Group, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list groups")
	}
	return groups, nil
}

func (s *Service) GetGroup(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	return g, nil
}

func (s *Service) CreateGroup(ctx context.Context, in models.GroupInput) (*models.Group, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	g := &models.Group{Slug: in.Slug, Name: in.Name, Description: in.Description}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, wrapGroupWriteErr(err, "failed to create group")
	}
	s.logger.InfoContext(ctx, string(audit.EventGroupCreated),
		"group_id", g.ID.String(),
		"slug", g.Slug,
	)
	s.emit(ctx, audit.Event{Action: string(audit.EventGroupCreated), Subject: g.Slug})
	return g, nil
}

func (s *Service) UpdateGroup(ctx context.Context, groupID id.GroupID, in models.GroupInput) (*models.Group, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	g, err := s.mutableGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	g.Slug = in.Slug
	g.Name = in.Name
	g.Description = in.Description
	if err := s.groups.Update(ctx, g); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Of(dErrors.CodeUnknownGroup)
		}
		return nil, wrapGroupWriteErr(err, "failed to update group")
	}
	return g, nil
}

func (s *Service) ListMembers(ctx context.Context, groupID id.GroupID) (*models.GroupMembers, error) {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, g.ID)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list group members")
	}
	return &models.GroupMembers{Group: g, Members: members}, nil
}

// AddMember is idempotent. Adding a user who is already a member succeeds
// so stale admin views converge without errors.
func (s *Service) AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) (*models.GroupMembers, error) {
	return s.changeMembership(ctx, groupID, userID, "added", func(g *models.Group, u *models.User) error {
		if err := s.groups.AddMember(ctx, g.ID, u.ID); err != nil {
			return dErrors.Internal(err, "failed to add group member")
		}
		return nil
	})
}

func (s *Service) RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) (*models.GroupMembers, error) {
	return s.changeMembership(ctx, groupID, userID, "removed", func(g *models.Group, u *models.User) error {
		if err := s.groups.RemoveMember(ctx, g.ID, u.ID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Of(dErrors.CodeUserNotInGroup)
			}
			return dErrors.Internal(err, "failed to remove group member")
		}
		return nil
	})
}

func (s *Service) changeMembership(
	ctx context.Context,
	groupID id.GroupID,
	userID id.UserID,
	change string,
	apply func(*models.Group, *models.User) error,
) (*models.GroupMembers, error) {
	g, err := s.mutableGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := apply(g, u); err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, g.ID)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to list group members")
	}

	s.logAudit(ctx, audit.EventGroupMembership, u.ID, "group", g.Slug, "change", change)
	return &models.GroupMembers{Group: g, TargetedUser: u, Members: members}, nil
}

func (s *Service) mutableGroup(ctx context.Context, groupID id.GroupID) (*models.Group, error) {
	g, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.IsManaged {
		return nil, dErrors.Of(dErrors.CodeManagedObject)
	}
	return g, nil
}

// Bootstrap creates the managed admin group and the first admin user, then
// links them. Existing rows are reused so setup can be re-run.
func (s *Service) Bootstrap(ctx context.Context, in models.UserInput) (*models.User, *models.Group, error) {
	in.IsAdmin = true
	in.IsSuspended = false
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		admin *models.User
		grp   *models.Group
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		grp, err = s.groups.FindBySlug(txCtx, AdminGroupSlug)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			grp = &models.Group{
				Slug:        AdminGroupSlug,
				Name:        "Administrators",
				Description: "Users with full access to the identity server.",
				IsManaged:   true,
			}
			if err := s.groups.Create(txCtx, grp); err != nil {
				return wrapGroupWriteErr(err, "failed to create admin group")
			}
		case err != nil:
			return dErrors.Internal(err, "failed to load admin group")
		}

		admin, err = s.users.FindByUsername(txCtx, in.Username)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			admin = &models.User{
				Email:          in.Email,
				Username:       in.Username,
				Name:           in.Name,
				IsAdmin:        true,
				CredentialUUID: uuid.New(),
			}
			if err := s.users.Create(txCtx, admin); err != nil {
				return wrapUserWriteErr(err, "failed to create admin user")
			}
			s.metrics.IncrementUsersCreated()
		case err != nil:
			return dErrors.Internal(err, "failed to load admin user")
		}

		if err := s.groups.AddMember(txCtx, grp.ID, admin.ID); err != nil {
			return dErrors.Internal(err, "failed to add admin to group")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logAudit(ctx, audit.EventUserCreated, admin.ID, "bootstrap", true)
	return admin, grp, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, attributes ...any) {
	actor := requestcontext.UserID(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"user_id", userID.String(),
	)
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if !actor.IsNil() {
		args = append(args, "actor_id", actor.String())
	}
	s.logger.InfoContext(ctx, string(event), args...)

	ev := audit.Event{UserID: userID, Subject: userID.String(), Action: string(event)}
	if !actor.IsNil() && actor != userID {
		ev.ActorID = actor.String()
	}
	s.emit(ctx, ev)
}

func (s *Service) emit(ctx context.Context, ev audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", ev.Action, "error", err)
	}
}

func wrapUserErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Of(dErrors.CodeUnknownUser)
	}
	return dErrors.Internal(err, "failed to load user")
}

func wrapGroupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Of(dErrors.CodeUnknownGroup)
	}
	return dErrors.Internal(err, "failed to load group")
}

func wrapUserWriteErr(err error, msg string) error {
	switch {
	case errors.Is(err, user.ErrUsernameTaken):
		return dErrors.Of(dErrors.CodeUsernameExists)
	case errors.Is(err, user.ErrEmailTaken):
		return dErrors.Of(dErrors.CodeEmailExists)
	}
	return dErrors.Internal(err, msg)
}

func wrapGroupWriteErr(err error, msg string) error {
	if errors.Is(err, group.ErrSlugTaken) {
		return dErrors.Of(dErrors.CodeGroupSlugExists)
	}
	return dErrors.Internal(err, msg)
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
