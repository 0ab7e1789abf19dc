package service

import (
	"context"
	"errors"

	"sigil/internal/auth/device"
	"sigil/internal/auth/models"
	identity "sigil/internal/identity/models"
	jwttoken "sigil/internal/jwt_token"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// createSession stores a new session and returns it with the raw refresh
// secret. The secret is never persisted.
func (s *Service) createSession(ctx context.Context, userID id.UserID, credentialID id.CredentialID) (*models.Session, string, error) {
	raw, hash, err := s.hasher.NewSecret(ctx)
	if err != nil {
		return nil, "", dErrors.Internal(err, "failed to generate refresh secret")
	}
	now := requestcontext.Now(ctx)
	session := &models.Session{
		SessionID:       id.SessionID(s.ids.NextID()),
		UserID:          userID,
		CredentialID:    credentialID,
		RefreshHash:     hash,
		DeviceName:      device.ParseUserAgent(requestcontext.UserAgent(ctx)),
		CreatedAt:       now,
		LastRefreshedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", dErrors.Internal(err, "failed to create session")
	}
	s.logAudit(ctx, audit.EventSessionCreated, userID,
		"session_id", session.SessionID.String(),
		"device_name", session.DeviceName,
	)
	return session, raw, nil
}

func (s *Service) mint(u *identity.User, session *models.Session, refresh string) (*models.TokenPair, error) {
	access, err := s.tokens.Encode(jwttoken.PurposeAccess, jwttoken.AccessClaims{
		UserID:           u.ID,
		Method:           jwttoken.MethodPasskey,
		Email:            u.Email,
		Username:         u.Username,
		Name:             u.Name,
		WebauthnID:       session.CredentialID,
		IsAdmin:          u.IsAdmin,
		SessionID:        session.SessionID,
		RegisteredClaims: s.tokens.Stamp(jwttoken.PurposeAccess),
	})
	if err != nil {
		return nil, dErrors.Internal(err, "failed to sign access token")
	}
	refreshToken, err := s.tokens.Encode(jwttoken.PurposeRefresh, jwttoken.RefreshClaims{
		SessionID:        session.SessionID,
		RefreshToken:     refresh,
		RegisteredClaims: s.tokens.Stamp(jwttoken.PurposeRefresh),
	})
	if err != nil {
		return nil, dErrors.Internal(err, "failed to sign refresh token")
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a refresh token for a new pair on the same session. The
// presented secret stops working once this returns.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ *models.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer span.End()
	defer func() {
		outcome := outcomeOK
		if de, ok := dErrors.As(err); ok {
			outcome = string(de.Code)
		}
		s.metrics.IncrementRefresh(outcome)
	}()

	expired := dErrors.Of(dErrors.CodeSessionExpired)

	var claims jwttoken.RefreshClaims
	if err := s.tokens.Decode(jwttoken.PurposeRefresh, refreshToken, &claims); err != nil {
		return nil, expired
	}
	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "session lookup failed during refresh",
				"session_id", claims.SessionID.String(),
				"error", err,
			)
		}
		return nil, expired
	}
	if err := s.hasher.Verify(ctx, claims.RefreshToken, session.RefreshHash); err != nil {
		return nil, expired
	}

	u, err := s.loadActiveUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	raw, hash, err := s.hasher.NewSecret(ctx)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to generate refresh secret")
	}
	now := requestcontext.Now(ctx)
	if err := s.sessions.Rotate(ctx, session.SessionID, session.RefreshHash, hash, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, expired
		}
		return nil, dErrors.Internal(err, "failed to rotate session")
	}
	session.RefreshHash = hash
	session.LastRefreshedAt = now

	pair, err := s.mint(u, session, raw)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventSessionRefreshed, u.ID, "session_id", session.SessionID.String())
	return pair, nil
}

// Logout revokes the session behind the caller's access token. Revoking an
// already-missing session succeeds.
func (s *Service) Logout(ctx context.Context, sessionID id.SessionID) error {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer span.End()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return dErrors.Internal(err, "failed to delete session")
	}
	s.logAudit(ctx, audit.EventSessionRevoked, requestcontext.UserID(ctx), "session_id", sessionID.String())
	return nil
}
