package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sigil/internal/auth/ceremony"
	"sigil/internal/auth/models"
	"sigil/internal/auth/service/mocks"
	"sigil/internal/auth/store/credential"
	identity "sigil/internal/identity/models"
	jwttoken "sigil/internal/jwt_token"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/idgen"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx         context.Context
	now         time.Time
	codec       *jwttoken.Codec
	users       *mocks.MockUserStore
	credentials *mocks.MockCredentialStore
	sessions    *mocks.MockSessionStore
	rp          *mocks.MockCeremony
	hasher      *mocks.MockHasher
	auditor     *mocks.MockAuditPublisher
	service     *Service
	user        *identity.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithClientMetadata(s.ctx, "203.0.113.9",
		"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")

	keys := make(map[jwttoken.Purpose][]byte, len(jwttoken.Purposes))
	for _, p := range jwttoken.Purposes {
		keys[p] = []byte("auth-service-test-key-" + string(p))
	}
	codec, err := jwttoken.NewCodec(keys, jwttoken.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.codec = codec

	ctrl := gomock.NewController(s.T())
	s.users = mocks.NewMockUserStore(ctrl)
	s.credentials = mocks.NewMockCredentialStore(ctrl)
	s.sessions = mocks.NewMockSessionStore(ctrl)
	s.rp = mocks.NewMockCeremony(ctrl)
	s.hasher = mocks.NewMockHasher(ctrl)
	s.auditor = mocks.NewMockAuditPublisher(ctrl)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	s.service = New(s.users, s.credentials, s.sessions, s.rp, s.hasher, s.codec, idgen.NewSequence(5000),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
	)

	s.user = &identity.User{
		ID:             7,
		Email:          "ada@example.com",
		Username:       "ada",
		Name:           "Ada Lovelace",
		CredentialUUID: uuid.MustParse("0b7c3a62-3c1e-4d59-9f51-4a8f2f3f4c11"),
	}
}

func (s *ServiceSuite) registrationToken(email string) string {
	token, err := s.codec.Encode(jwttoken.PurposeRegistration, jwttoken.RegistrationClaims{
		UserID:           s.user.ID,
		Email:            email,
		Username:         s.user.Username,
		Name:             s.user.Name,
		RegisteredClaims: s.codec.Stamp(jwttoken.PurposeRegistration),
	})
	s.Require().NoError(err)
	return token
}

func (s *ServiceSuite) registrationChallenge(handle uuid.UUID) string {
	token, err := s.codec.Encode(jwttoken.PurposeRegistrationChallenge, registrationChallenge{
		CredentialUUID:   handle,
		Session:          webauthn.SessionData{Challenge: "reg-challenge"},
		RegisteredClaims: s.codec.Stamp(jwttoken.PurposeRegistrationChallenge),
	})
	s.Require().NoError(err)
	return token
}

func (s *ServiceSuite) loginChallenge() string {
	token, err := s.codec.Encode(jwttoken.PurposeLoginChallenge, loginChallenge{
		Session:          webauthn.SessionData{Challenge: "login-challenge"},
		RegisteredClaims: s.codec.Stamp(jwttoken.PurposeLoginChallenge),
	})
	s.Require().NoError(err)
	return token
}

func pkCredential(rawID, userHandle []byte) []byte {
	b64 := base64.RawURLEncoding.EncodeToString
	return fmt.Appendf(nil, `{"id":%q,"rawId":%q,"type":"public-key","response":{"userHandle":%q}}`,
		b64(rawID), b64(rawID), b64(userHandle))
}

// assertGenericWebauthnMessage checks the verifier's error text stays in the
// wrapped cause and never reaches the caller.
func (s *ServiceSuite) assertGenericWebauthnMessage(err error) {
	s.T().Helper()
	de, ok := dErrors.As(err)
	s.Require().True(ok)
	s.Equal(dErrors.MessageFor(dErrors.CodeWebauthn), de.PublicMessage())
	s.NotContains(de.PublicMessage(), "attestation")
	s.NotContains(de.PublicMessage(), "signature")
	s.Error(errors.Unwrap(err))
}

func (s *ServiceSuite) assertCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, code), "want %s, got %v", code, err)
}

func (s *ServiceSuite) TestStartRegistration() {
	s.Run("expired or forged token", func() {
		_, err := s.service.StartRegistration(s.ctx, "not-a-token")
		s.assertCode(err, dErrors.CodeExpiredRegistration)
	})

	s.Run("deleted user", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.StartRegistration(s.ctx, s.registrationToken(s.user.Email))
		s.assertCode(err, dErrors.CodeUserDeleted)
	})

	s.Run("suspended user", func() {
		suspended := *s.user
		suspended.IsSuspended = true
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(&suspended, nil)
		_, err := s.service.StartRegistration(s.ctx, s.registrationToken(s.user.Email))
		s.assertCode(err, dErrors.CodeUserSuspended)
	})

	s.Run("email changed after the link was sent", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		_, err := s.service.StartRegistration(s.ctx, s.registrationToken("old@example.com"))
		s.assertCode(err, dErrors.CodeEmailChanged)
	})

	s.Run("signs the ceremony state for the user's handle", func() {
		existing := &models.Credential{Passkey: webauthn.Credential{ID: []byte("old")}}
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.credentials.EXPECT().ListByUUID(gomock.Any(), s.user.CredentialUUID).Return([]*models.Credential{existing}, nil)
		s.rp.EXPECT().BeginRegistration(gomock.Any()).DoAndReturn(
			func(acct *ceremony.Account) (*protocol.CredentialCreation, *webauthn.SessionData, error) {
				s.Equal(s.user.CredentialUUID, acct.Handle)
				s.Require().Len(acct.Credentials, 1)
				return &protocol.CredentialCreation{}, &webauthn.SessionData{Challenge: "abc"}, nil
			})

		res, err := s.service.StartRegistration(s.ctx, s.registrationToken(s.user.Email))
		s.Require().NoError(err)

		var chal registrationChallenge
		s.Require().NoError(s.codec.Decode(jwttoken.PurposeRegistrationChallenge, res.ChallengeSignature, &chal))
		s.Equal(s.user.CredentialUUID, chal.CredentialUUID)
		s.Equal("abc", chal.Session.Challenge)
		s.Equal(s.now.Add(jwttoken.ChallengeTTL).Unix(), chal.ExpiresAt.Unix())
	})
}

func (s *ServiceSuite) TestFinishRegistration() {
	rawID := []byte{0xde, 0xad, 0xbe, 0xef}
	request := func(challenge string) models.FinishRegistrationRequest {
		return models.FinishRegistrationRequest{
			ChallengeSignature: challenge,
			RegistrationToken:  s.registrationToken(s.user.Email),
			PKCredential:       pkCredential(rawID, nil),
		}
	}

	s.Run("expired registration is checked before the challenge", func() {
		err := s.service.FinishRegistration(s.ctx, models.FinishRegistrationRequest{
			ChallengeSignature: "garbage",
			RegistrationToken:  "garbage",
		})
		s.assertCode(err, dErrors.CodeExpiredRegistration)
	})

	s.Run("challenge signed for login is rejected", func() {
		err := s.service.FinishRegistration(s.ctx, request(s.loginChallenge()))
		s.assertCode(err, dErrors.CodeInvalidChallenge)
	})

	s.Run("challenge issued for another user", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		err := s.service.FinishRegistration(s.ctx, request(s.registrationChallenge(uuid.New())))
		s.assertCode(err, dErrors.CodeInvalidChallenge)
	})

	s.Run("credential already on the account", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.credentials.EXPECT().ListByUUID(gomock.Any(), s.user.CredentialUUID).Return([]*models.Credential{
			{CredentialID: base64.RawURLEncoding.EncodeToString(rawID)},
		}, nil)
		err := s.service.FinishRegistration(s.ctx, request(s.registrationChallenge(s.user.CredentialUUID)))
		s.assertCode(err, dErrors.CodeCredentialAlreadyRegistered)
	})

	s.Run("ceremony failure", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.credentials.EXPECT().ListByUUID(gomock.Any(), s.user.CredentialUUID).Return(nil, nil)
		s.rp.EXPECT().FinishRegistration(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("parse attestation: bad attestation"))
		err := s.service.FinishRegistration(s.ctx, request(s.registrationChallenge(s.user.CredentialUUID)))
		s.assertCode(err, dErrors.CodeWebauthn)
		s.assertGenericWebauthnMessage(err)
	})

	s.Run("credential registered by another user", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.credentials.EXPECT().ListByUUID(gomock.Any(), s.user.CredentialUUID).Return(nil, nil)
		s.rp.EXPECT().FinishRegistration(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&webauthn.Credential{ID: rawID}, nil)
		s.credentials.EXPECT().Create(gomock.Any(), gomock.Any()).Return(credential.ErrAlreadyRegistered)
		err := s.service.FinishRegistration(s.ctx, request(s.registrationChallenge(s.user.CredentialUUID)))
		s.assertCode(err, dErrors.CodeCredentialAlreadyRegistered)
	})

	s.Run("stores the passkey", func() {
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.credentials.EXPECT().ListByUUID(gomock.Any(), s.user.CredentialUUID).Return(nil, nil)
		s.rp.EXPECT().FinishRegistration(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ *ceremony.Account, session webauthn.SessionData, _ []byte) (*webauthn.Credential, error) {
				s.Equal("reg-challenge", session.Challenge)
				return &webauthn.Credential{ID: rawID}, nil
			})
		s.credentials.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.Credential) error {
				s.Equal(models.DefaultCredentialName, c.Name)
				s.Equal("3q2-7w", c.CredentialID)
				s.Equal(s.user.CredentialUUID, c.CredentialUUID)
				c.ID = 3
				return nil
			})
		s.NoError(s.service.FinishRegistration(s.ctx, request(s.registrationChallenge(s.user.CredentialUUID))))
	})
}

func (s *ServiceSuite) TestStartLogin() {
	s.rp.EXPECT().BeginLogin().Return(&protocol.CredentialAssertion{}, &webauthn.SessionData{Challenge: "xyz"}, nil)

	res, err := s.service.StartLogin(s.ctx)
	s.Require().NoError(err)

	var chal loginChallenge
	s.Require().NoError(s.codec.Decode(jwttoken.PurposeLoginChallenge, res.ChallengeSignature, &chal))
	s.Equal("xyz", chal.Session.Challenge)
	s.Error(s.codec.Decode(jwttoken.PurposeRegistrationChallenge, res.ChallengeSignature, &chal))
}

func (s *ServiceSuite) TestFinishLogin() {
	rawID := []byte("credential-raw-id")
	handle := s.user.CredentialUUID
	stored := &models.Credential{
		ID:             3,
		Name:           models.DefaultCredentialName,
		CredentialUUID: handle,
		CredentialID:   base64.RawURLEncoding.EncodeToString(rawID),
		Passkey:        webauthn.Credential{ID: rawID},
	}
	request := func(userHandle []byte) models.FinishLoginRequest {
		return models.FinishLoginRequest{
			ChallengeSignature: s.loginChallenge(),
			PKCredential:       pkCredential(rawID, userHandle),
		}
	}

	s.Run("invalid challenge", func() {
		_, err := s.service.FinishLogin(s.ctx, models.FinishLoginRequest{ChallengeSignature: "x"})
		s.assertCode(err, dErrors.CodeInvalidChallenge)
	})

	s.Run("missing user handle", func() {
		_, err := s.service.FinishLogin(s.ctx, request(nil))
		s.assertCode(err, dErrors.CodeInvalidCredential)
	})

	s.Run("user handle is not a uuid", func() {
		_, err := s.service.FinishLogin(s.ctx, request([]byte("short")))
		s.assertCode(err, dErrors.CodeInvalidCredential)
	})

	s.Run("credential lookup failure", func() {
		s.credentials.EXPECT().ListByUUID(gomock.Any(), handle).Return(nil, errors.New("db down"))
		_, err := s.service.FinishLogin(s.ctx, request(handle[:]))
		s.assertCode(err, dErrors.CodeInternal)
	})

	s.Run("deleted user", func() {
		s.credentials.EXPECT().ListByUUID(gomock.Any(), handle).Return(nil, nil)
		s.users.EXPECT().FindByCredentialUUID(gomock.Any(), handle).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.FinishLogin(s.ctx, request(handle[:]))
		s.assertCode(err, dErrors.CodeUserDeleted)
	})

	s.Run("suspended user", func() {
		suspended := *s.user
		suspended.IsSuspended = true
		s.credentials.EXPECT().ListByUUID(gomock.Any(), handle).Return([]*models.Credential{stored}, nil)
		s.users.EXPECT().FindByCredentialUUID(gomock.Any(), handle).Return(&suspended, nil)
		_, err := s.service.FinishLogin(s.ctx, request(handle[:]))
		s.assertCode(err, dErrors.CodeUserSuspended)
	})

	s.Run("assertion fails verification", func() {
		s.credentials.EXPECT().ListByUUID(gomock.Any(), handle).Return([]*models.Credential{stored}, nil)
		s.users.EXPECT().FindByCredentialUUID(gomock.Any(), handle).Return(s.user, nil)
		s.rp.EXPECT().FinishLogin(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("bad signature"))
		_, err := s.service.FinishLogin(s.ctx, request(handle[:]))
		s.assertCode(err, dErrors.CodeWebauthn)
		s.assertGenericWebauthnMessage(err)
	})

	s.Run("verified credential has no stored row", func() {
		s.credentials.EXPECT().ListByUUID(gomock.Any(), handle).Return([]*models.Credential{stored}, nil)
		s.users.EXPECT().FindByCredentialUUID(gomock.Any(), handle).Return(s.user, nil)
		s.rp.EXPECT().FinishLogin(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&webauthn.Credential{ID: []byte("other")}, nil)
		_, err := s.service.FinishLogin(s.ctx, request(handle[:]))
		s.assertCode(err, dErrors.CodeInternal)
	})

	s.Run("opens a session", func() {
		s.credentials.EXPECT().ListByUUID(gomock.Any(), handle).Return([]*models.Credential{stored}, nil)
		s.users.EXPECT().FindByCredentialUUID(gomock.Any(), handle).Return(s.user, nil)
		s.rp.EXPECT().FinishLogin(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(acct *ceremony.Account, session webauthn.SessionData, _ []byte) (*webauthn.Credential, error) {
				s.Equal(handle, acct.Handle)
				s.Equal("login-challenge", session.Challenge)
				return &webauthn.Credential{ID: rawID, Authenticator: webauthn.Authenticator{SignCount: 9}}, nil
			})
		s.hasher.EXPECT().NewSecret(gomock.Any()).Return("raw-secret", "hash-1", nil)
		s.sessions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, sess *models.Session) error {
				s.Equal("hash-1", sess.RefreshHash)
				s.True(strings.HasPrefix(sess.DeviceName, "Firefox on Linux"), sess.DeviceName)
				s.Equal(s.now, sess.CreatedAt)
				return nil
			})

		res, err := s.service.FinishLogin(s.ctx, request(handle[:]))
		s.Require().NoError(err)
		s.Equal(id.SessionID(5000), res.Session.SessionID)
		s.Equal(id.CredentialID(3), res.Credential.ID)
		s.Zero(res.Credential.Passkey.Authenticator.SignCount, "stored credential is returned as persisted")
		s.Equal(s.user, res.User)

		var access jwttoken.AccessClaims
		s.Require().NoError(s.codec.Decode(jwttoken.PurposeAccess, res.AccessToken, &access))
		s.Equal(s.user.ID, access.UserID)
		s.Equal(id.SessionID(5000), access.SessionID)
		s.Equal(id.CredentialID(3), access.WebauthnID)
		s.Equal(jwttoken.MethodPasskey, access.Method)

		var refresh jwttoken.RefreshClaims
		s.Require().NoError(s.codec.Decode(jwttoken.PurposeRefresh, res.RefreshToken, &refresh))
		s.Equal("raw-secret", refresh.RefreshToken)
		s.Nil(refresh.ExpiresAt)
	})
}

func (s *ServiceSuite) refreshToken(sessionID id.SessionID, secret string) string {
	token, err := s.codec.Encode(jwttoken.PurposeRefresh, jwttoken.RefreshClaims{
		SessionID:        sessionID,
		RefreshToken:     secret,
		RegisteredClaims: s.codec.Stamp(jwttoken.PurposeRefresh),
	})
	s.Require().NoError(err)
	return token
}

func (s *ServiceSuite) TestRefresh() {
	session := &models.Session{SessionID: 42, UserID: s.user.ID, CredentialID: 3, RefreshHash: "hash-old"}

	s.Run("wrong purpose token", func() {
		access, err := s.codec.Encode(jwttoken.PurposeAccess, jwttoken.AccessClaims{
			SessionID:        42,
			RegisteredClaims: s.codec.Stamp(jwttoken.PurposeAccess),
		})
		s.Require().NoError(err)
		_, err = s.service.Refresh(s.ctx, access)
		s.assertCode(err, dErrors.CodeSessionExpired)
	})

	s.Run("revoked session", func() {
		s.sessions.EXPECT().FindByID(gomock.Any(), id.SessionID(42)).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Refresh(s.ctx, s.refreshToken(42, "raw"))
		s.assertCode(err, dErrors.CodeSessionExpired)
	})

	s.Run("store failure looks the same as a revoked session", func() {
		s.sessions.EXPECT().FindByID(gomock.Any(), id.SessionID(42)).Return(nil, errors.New("db down"))
		_, err := s.service.Refresh(s.ctx, s.refreshToken(42, "raw"))
		s.assertCode(err, dErrors.CodeSessionExpired)
	})

	s.Run("secret does not match", func() {
		s.sessions.EXPECT().FindByID(gomock.Any(), id.SessionID(42)).Return(session, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), "stale", "hash-old").Return(errors.New("mismatch"))
		_, err := s.service.Refresh(s.ctx, s.refreshToken(42, "stale"))
		s.assertCode(err, dErrors.CodeSessionExpired)
	})

	s.Run("suspended user", func() {
		suspended := *s.user
		suspended.IsSuspended = true
		s.sessions.EXPECT().FindByID(gomock.Any(), id.SessionID(42)).Return(session, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), "raw", "hash-old").Return(nil)
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(&suspended, nil)
		_, err := s.service.Refresh(s.ctx, s.refreshToken(42, "raw"))
		s.assertCode(err, dErrors.CodeUserSuspended)
	})

	s.Run("concurrent refresh loses the swap", func() {
		s.sessions.EXPECT().FindByID(gomock.Any(), id.SessionID(42)).Return(session, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), "raw", "hash-old").Return(nil)
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.hasher.EXPECT().NewSecret(gomock.Any()).Return("raw-new", "hash-new", nil)
		s.sessions.EXPECT().Rotate(gomock.Any(), id.SessionID(42), "hash-old", "hash-new", s.now).Return(sentinel.ErrNotFound)
		_, err := s.service.Refresh(s.ctx, s.refreshToken(42, "raw"))
		s.assertCode(err, dErrors.CodeSessionExpired)
	})

	s.Run("rotates the secret on the same session", func() {
		current := *session
		s.sessions.EXPECT().FindByID(gomock.Any(), id.SessionID(42)).Return(&current, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), "raw", "hash-old").Return(nil)
		s.users.EXPECT().FindByID(gomock.Any(), s.user.ID).Return(s.user, nil)
		s.hasher.EXPECT().NewSecret(gomock.Any()).Return("raw-new", "hash-new", nil)
		s.sessions.EXPECT().Rotate(gomock.Any(), id.SessionID(42), "hash-old", "hash-new", s.now).Return(nil)

		pair, err := s.service.Refresh(s.ctx, s.refreshToken(42, "raw"))
		s.Require().NoError(err)

		var refresh jwttoken.RefreshClaims
		s.Require().NoError(s.codec.Decode(jwttoken.PurposeRefresh, pair.RefreshToken, &refresh))
		s.Equal(id.SessionID(42), refresh.SessionID)
		s.Equal("raw-new", refresh.RefreshToken)

		var access jwttoken.AccessClaims
		s.Require().NoError(s.codec.Decode(jwttoken.PurposeAccess, pair.AccessToken, &access))
		s.Equal(id.CredentialID(3), access.WebauthnID)
	})
}

func (s *ServiceSuite) TestLogoutOfMissingSessionSucceeds() {
	s.sessions.EXPECT().Delete(gomock.Any(), id.SessionID(42)).Return(nil)
	s.NoError(s.service.Logout(requestcontext.WithUserID(s.ctx, s.user.ID), 42))
}

func (s *ServiceSuite) TestAuditOnFailedLogin() {
	ctrl := gomock.NewController(s.T())
	auditor := mocks.NewMockAuditPublisher(ctrl)
	svc := New(s.users, s.credentials, s.sessions, s.rp, s.hasher, s.codec, idgen.NewSequence(1),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(auditor),
	)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev audit.Event) error {
			s.Equal(string(audit.EventAuthFailed), ev.Action)
			s.Equal(string(dErrors.CodeInvalidChallenge), ev.Reason)
			return nil
		})

	_, err := svc.FinishLogin(s.ctx, models.FinishLoginRequest{ChallengeSignature: "x"})
	s.assertCode(err, dErrors.CodeInvalidChallenge)
}
