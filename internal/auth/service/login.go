package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"sigil/internal/auth/models"
	jwttoken "sigil/internal/jwt_token"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/sentinel"
)

// StartLogin begins a discoverable login. No user is known yet; the
// authenticator picks the account.
func (s *Service) StartLogin(ctx context.Context) (_ *models.Challenge, err error) {
	ctx, span := tracer.Start(ctx, "auth.StartLogin")
	defer span.End()
	defer func() { s.recordCeremony(ctx, kindLogin, phaseStart, 0, err) }()

	assertion, session, err := s.ceremony.BeginLogin()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeWebauthn, dErrors.MessageFor(dErrors.CodeWebauthn))
	}
	signature, err := s.tokens.Encode(jwttoken.PurposeLoginChallenge, loginChallenge{
		Session:          *session,
		RegisteredClaims: s.tokens.Stamp(jwttoken.PurposeLoginChallenge),
	})
	if err != nil {
		return nil, dErrors.Internal(err, "failed to sign login challenge")
	}
	return &models.Challenge{ChallengeSignature: signature, ChallengeResponse: assertion}, nil
}

// FinishLogin verifies the assertion and opens a session for the passkey
// that produced it.
func (s *Service) FinishLogin(ctx context.Context, req models.FinishLoginRequest) (_ *models.LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.FinishLogin")
	defer span.End()

	var userID id.UserID
	defer func() { s.recordCeremony(ctx, kindLogin, phaseFinish, userID, err) }()

	var chal loginChallenge
	if err := s.tokens.Decode(jwttoken.PurposeLoginChallenge, req.ChallengeSignature, &chal); err != nil {
		return nil, dErrors.Of(dErrors.CodeInvalidChallenge)
	}
	peek, err := peekCredential(req.PKCredential)
	if err != nil || len(peek.Response.UserHandle) == 0 {
		return nil, dErrors.Of(dErrors.CodeInvalidCredential)
	}
	handle, err := uuid.FromBytes(peek.Response.UserHandle)
	if err != nil {
		return nil, dErrors.Of(dErrors.CodeInvalidCredential)
	}

	creds, err := s.credentials.ListByUUID(ctx, handle)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to load credentials")
	}
	u, err := s.users.FindByCredentialUUID(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Of(dErrors.CodeUserDeleted)
		}
		return nil, dErrors.Internal(err, "failed to load user")
	}
	userID = u.ID
	if u.IsSuspended {
		return nil, dErrors.Of(dErrors.CodeUserSuspended)
	}

	passkey, err := s.ceremony.FinishLogin(newAccount(u, creds), chal.Session, req.PKCredential)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeWebauthn, dErrors.MessageFor(dErrors.CodeWebauthn))
	}
	verifiedID := encodeCredentialID(passkey.ID)
	var cred *models.Credential
	for _, c := range creds {
		if c.CredentialID == verifiedID {
			cred = c
			break
		}
	}
	if cred == nil {
		return nil, dErrors.Internal(errors.New("verified credential has no stored row"), "failed to match credential")
	}
	session, refresh, err := s.createSession(ctx, u.ID, cred.ID)
	if err != nil {
		return nil, err
	}
	pair, err := s.mint(u, session, refresh)
	if err != nil {
		return nil, err
	}
	return &models.LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Session:      session,
		Credential:   cred,
		User:         u,
	}, nil
}
