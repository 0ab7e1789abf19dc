package service

import (
	"context"
	"errors"

	"github.com/go-webauthn/webauthn/webauthn"

	"sigil/internal/auth/ceremony"
	"sigil/internal/auth/models"
	"sigil/internal/auth/store/credential"
	identity "sigil/internal/identity/models"
	jwttoken "sigil/internal/jwt_token"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/requestcontext"
)

// StartRegistration opens a passkey registration for the user named by an
// emailed registration token.
func (s *Service) StartRegistration(ctx context.Context, registrationToken string) (_ *models.Challenge, err error) {
	ctx, span := tracer.Start(ctx, "auth.StartRegistration")
	defer span.End()

	var intent jwttoken.RegistrationClaims
	defer func() { s.recordCeremony(ctx, kindRegistration, phaseStart, intent.UserID, err) }()

	if err := s.tokens.Decode(jwttoken.PurposeRegistration, registrationToken, &intent); err != nil {
		return nil, dErrors.Of(dErrors.CodeExpiredRegistration)
	}
	u, err := s.loadActiveUser(ctx, intent.UserID)
	if err != nil {
		return nil, err
	}
	if u.Email != intent.Email {
		return nil, dErrors.Of(dErrors.CodeEmailChanged)
	}
	acct, err := s.account(ctx, u)
	if err != nil {
		return nil, err
	}

	creation, session, err := s.ceremony.BeginRegistration(acct)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeWebauthn, dErrors.MessageFor(dErrors.CodeWebauthn))
	}
	signature, err := s.tokens.Encode(jwttoken.PurposeRegistrationChallenge, registrationChallenge{
		CredentialUUID:   u.CredentialUUID,
		Session:          *session,
		RegisteredClaims: s.tokens.Stamp(jwttoken.PurposeRegistrationChallenge),
	})
	if err != nil {
		return nil, dErrors.Internal(err, "failed to sign registration challenge")
	}
	return &models.Challenge{ChallengeSignature: signature, ChallengeResponse: creation}, nil
}

// FinishRegistration verifies the attestation and stores the new passkey.
func (s *Service) FinishRegistration(ctx context.Context, req models.FinishRegistrationRequest) (err error) {
	ctx, span := tracer.Start(ctx, "auth.FinishRegistration")
	defer span.End()

	var intent jwttoken.RegistrationClaims
	defer func() { s.recordCeremony(ctx, kindRegistration, phaseFinish, intent.UserID, err) }()

	if err := s.tokens.Decode(jwttoken.PurposeRegistration, req.RegistrationToken, &intent); err != nil {
		return dErrors.Of(dErrors.CodeExpiredRegistration)
	}
	var chal registrationChallenge
	if err := s.tokens.Decode(jwttoken.PurposeRegistrationChallenge, req.ChallengeSignature, &chal); err != nil {
		return dErrors.Of(dErrors.CodeInvalidChallenge)
	}
	u, err := s.loadActiveUser(ctx, intent.UserID)
	if err != nil {
		return err
	}
	if chal.CredentialUUID != u.CredentialUUID {
		return dErrors.Of(dErrors.CodeInvalidChallenge)
	}
	if u.Email != intent.Email {
		return dErrors.Of(dErrors.CodeEmailChanged)
	}

	peek, err := peekCredential(req.PKCredential)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeWebauthn, dErrors.MessageFor(dErrors.CodeWebauthn))
	}
	existing, err := s.credentials.ListByUUID(ctx, u.CredentialUUID)
	if err != nil {
		return dErrors.Internal(err, "failed to load credentials")
	}
	rawID := encodeCredentialID(peek.RawID)
	for _, c := range existing {
		if c.CredentialID == rawID {
			return dErrors.Of(dErrors.CodeCredentialAlreadyRegistered)
		}
	}

	acct := newAccount(u, existing)
	passkey, err := s.ceremony.FinishRegistration(acct, chal.Session, req.PKCredential)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeWebauthn, dErrors.MessageFor(dErrors.CodeWebauthn))
	}

	cred := &models.Credential{
		Name:           models.DefaultCredentialName,
		CredentialUUID: u.CredentialUUID,
		CredentialID:   encodeCredentialID(passkey.ID),
		Passkey:        *passkey,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, credential.ErrAlreadyRegistered) {
			return dErrors.Of(dErrors.CodeCredentialAlreadyRegistered)
		}
		return dErrors.Internal(err, "failed to store credential")
	}
	s.logAudit(ctx, audit.EventPasskeyRegistered, u.ID, "credential_id", cred.ID.String())
	return nil
}

func (s *Service) account(ctx context.Context, u *identity.User) (*ceremony.Account, error) {
	creds, err := s.credentials.ListByUUID(ctx, u.CredentialUUID)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to load credentials")
	}
	return newAccount(u, creds), nil
}

func newAccount(u *identity.User, creds []*models.Credential) *ceremony.Account {
	passkeys := make([]webauthn.Credential, 0, len(creds))
	for _, c := range creds {
		passkeys = append(passkeys, c.Passkey)
	}
	return &ceremony.Account{
		Handle:      u.CredentialUUID,
		Username:    u.Username,
		DisplayName: u.Name,
		Credentials: passkeys,
	}
}
