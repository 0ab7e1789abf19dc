package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sigil/internal/auth/secrets"
	"sigil/internal/client/models"
	"sigil/internal/client/service/mocks"
	"sigil/internal/client/store/overrides"
	"sigil/internal/policy"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/idgen"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	clients   *mocks.MockClientStore
	overrides *mocks.MockOverrideStore
	hasher    *mocks.MockSecretHasher
	auditor   *mocks.MockAuditPublisher
	tx        *mocks.MockTxRunner
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithUserID(context.Background(), 1), s.now)

	ctrl := gomock.NewController(s.T())
	s.clients = mocks.NewMockClientStore(ctrl)
	s.overrides = mocks.NewMockOverrideStore(ctrl)
	s.hasher = mocks.NewMockSecretHasher(ctrl)
	s.auditor = mocks.NewMockAuditPublisher(ctrl)
	s.tx = mocks.NewMockTxRunner(ctrl)
	s.tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }).AnyTimes()

	s.service = New(s.clients, s.overrides, s.hasher, idgen.NewSequence(1000),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
		WithTxRunner(s.tx),
	)
}

func (s *ServiceSuite) TestCreateClient() {
	s.Run("returns the secret once and stores its hash", func() {
		var stored *models.Client
		s.hasher.EXPECT().HashClientSecret(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, secret string) (string, error) {
				s.Len(secret, secrets.SecretLength)
				return "hashed:" + secret, nil
			})
		s.clients.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.Client) error {
				stored = c
				return nil
			})
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, ev audit.Event) error {
				s.Equal(string(audit.EventClientCreated), ev.Action)
				s.Equal("1000", ev.ClientID)
				s.Equal("1", ev.ActorID)
				return nil
			})

		res, err := s.service.CreateClient(s.ctx, models.ClientInput{
			AppName:           "Wiki",
			RedirectURIs:      []string{"https://wiki.example.com/cb"},
			AllowExplicitFlow: true,
		})
		s.Require().NoError(err)
		s.Equal(id.ClientID("1000"), res.Client.ClientID)
		s.Equal("hashed:"+res.ClientSecret, stored.ClientSecretHash)
		s.Equal(s.now, stored.CreatedAt)
		s.False(stored.IsManaged)
	})

	s.Run("rejects unsafe redirect uri before hashing", func() {
		_, err := s.service.CreateClient(s.ctx, models.ClientInput{AppName: "x", RedirectURIs: []string{"javascript:alert(1)"}})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRedirectURI))
	})
}

func (s *ServiceSuite) TestUpdateClient() {
	s.Run("managed client", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("1")).Return(&models.Client{ClientID: "1", IsManaged: true}, nil)
		_, err := s.service.UpdateClient(s.ctx, "1", models.ClientInput{AppName: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeManagedObject))
	})

	s.Run("unknown client", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("2")).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.UpdateClient(s.ctx, "2", models.ClientInput{AppName: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownClient))
	})

	s.Run("replaces fields and keeps the secret", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).
			Return(&models.Client{ClientID: "3", ClientSecretHash: "h", AppName: "Old", DefaultAllowed: true}, nil)
		s.clients.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		c, err := s.service.UpdateClient(s.ctx, "3", models.ClientInput{AppName: "New"})
		s.Require().NoError(err)
		s.Equal("New", c.AppName)
		s.False(c.DefaultAllowed)
		s.Equal("h", c.ClientSecretHash)
	})
}

func (s *ServiceSuite) TestRotateSecret() {
	s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3", ClientSecretHash: "old"}, nil)
	s.hasher.EXPECT().HashClientSecret(gomock.Any(), gomock.Any()).Return("new", nil)
	s.clients.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *models.Client) error {
			s.Equal("new", c.ClientSecretHash)
			return nil
		})
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	res, err := s.service.RotateSecret(s.ctx, "3")
	s.Require().NoError(err)
	s.NotEmpty(res.ClientSecret)
}

func (s *ServiceSuite) TestGetClient() {
	s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3"}, nil)
	s.overrides.EXPECT().ListUserPermissionOverrides(gomock.Any(), id.ClientID("3")).
		Return([]policy.UserPermissionOverride{{UserID: 4, ClientID: "3", Granted: true}}, nil)
	s.overrides.EXPECT().ListGroupPermissionOverrides(gomock.Any(), id.ClientID("3")).Return([]policy.GroupPermissionOverride{}, nil)
	s.overrides.EXPECT().ListUserRoleOverridesForClient(gomock.Any(), id.ClientID("3")).Return([]policy.UserRoleOverride{}, nil)
	s.overrides.EXPECT().ListGroupRoleOverrides(gomock.Any(), id.ClientID("3")).Return([]policy.GroupRoleOverride{}, nil)

	d, err := s.service.GetClient(s.ctx, "3")
	s.Require().NoError(err)
	s.Len(d.UserPermissionOverrides, 1)
}

func (s *ServiceSuite) TestSetGroupPermissionOverrides() {
	s.Run("stamps client id and runs in a transaction", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3"}, nil)
		s.overrides.EXPECT().ReplaceGroupPermissions(gomock.Any(), id.ClientID("3"), []policy.GroupPermissionOverride{
			{GroupID: 1, ClientID: "3", Granted: true, Priority: 2},
		}).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.service.SetGroupPermissionOverrides(s.ctx, "3", []policy.GroupPermissionOverride{{GroupID: 1, Granted: true, Priority: 2}})
		s.Require().NoError(err)
		s.Equal(id.ClientID("3"), res.Client.ClientID)
		s.Len(res.Overrides, 1)
	})

	s.Run("unknown group", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3"}, nil)
		s.overrides.EXPECT().ReplaceGroupPermissions(gomock.Any(), gomock.Any(), gomock.Any()).Return(overrides.ErrUnknownGroup)

		_, err := s.service.SetGroupPermissionOverrides(s.ctx, "3", []policy.GroupPermissionOverride{{GroupID: 99}})
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownGroup))
	})

	s.Run("empty list clears", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3"}, nil)
		s.overrides.EXPECT().ReplaceGroupPermissions(gomock.Any(), id.ClientID("3"), gomock.Len(0)).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.service.SetGroupPermissionOverrides(s.ctx, "3", nil)
		s.Require().NoError(err)
		s.NotNil(res.Overrides)
	})
}

func (s *ServiceSuite) TestSetGroupRoleOverrides() {
	s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(nil, sentinel.ErrNotFound)

	_, err := s.service.SetGroupRoleOverrides(s.ctx, "3", []policy.GroupRoleOverride{{GroupID: 1, Role: "editor"}})
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownClient))
}

func (s *ServiceSuite) TestUserOverrides() {
	s.Run("set permission for unknown user", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3"}, nil)
		s.overrides.EXPECT().SetUserPermission(gomock.Any(), policy.UserPermissionOverride{UserID: 404, ClientID: "3", Granted: true}).
			Return(overrides.ErrUnknownUser)

		err := s.service.SetUserPermission(s.ctx, "3", 404, true)
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownUser))
	})

	s.Run("set role", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3", IsManaged: true}, nil)
		s.overrides.EXPECT().SetUserRole(gomock.Any(), policy.UserRoleOverride{UserID: 4, ClientID: "3", Role: "editor", Granted: false}).
			Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		s.NoError(s.service.SetUserRole(s.ctx, "3", 4, "editor", false))
	})

	s.Run("delete role on unknown client", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("9")).Return(nil, sentinel.ErrNotFound)
		err := s.service.DeleteUserRole(s.ctx, "9", 4, "editor")
		s.True(dErrors.HasCode(err, dErrors.CodeUnknownClient))
	})

	s.Run("delete permission store failure is internal", func() {
		s.clients.EXPECT().FindByID(gomock.Any(), id.ClientID("3")).Return(&models.Client{ClientID: "3"}, nil)
		s.overrides.EXPECT().DeleteUserPermission(gomock.Any(), id.UserID(4), id.ClientID("3")).Return(errors.New("boom"))
		err := s.service.DeleteUserPermission(s.ctx, "3", 4)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
