package service

import (
	"context"
	"errors"

	client "sigil/internal/client/models"
	identity "sigil/internal/identity/models"
	"sigil/internal/oauth/models"
	"sigil/internal/oauth/store/grant"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/sentinel"
)

// ErrInvalidToken is returned by Userinfo for every rejected bearer token.
var ErrInvalidToken = errors.New("invalid access token")

const outcomeOK = "ok"

// Token redeems an authorization code for an access token, a refresh token
// and an id token. Errors are *domainerrors.OAuthError except for
// infrastructure failures.
func (s *Service) Token(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "oauth.Token")
	defer span.End()

	res, err := s.exchange(ctx, req)
	outcome := outcomeOK
	if err != nil {
		outcome = "server_error"
		var oe *dErrors.OAuthError
		if errors.As(err, &oe) {
			outcome = string(oe.Code)
		}
		span.RecordError(err)
	}
	s.metrics.IncrementTokenExchange(outcome)
	return res, err
}

func (s *Service) exchange(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error) {
	c, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if req.GrantType != models.GrantTypeAuthorizationCode {
		return nil, dErrors.NewOAuth(dErrors.OAuthUnsupportedGrantType, "grant_type must be authorization_code")
	}
	if req.Code == "" {
		return nil, dErrors.NewOAuth(dErrors.OAuthInvalidRequest, "code is required")
	}

	g, err := s.grants.Redeem(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewOAuth(dErrors.OAuthInvalidGrant, "The authorization code is invalid or has expired.")
		}
		return nil, err
	}
	if g.ClientID != c.ClientID || g.RedirectURI != req.RedirectURI {
		return nil, dErrors.NewOAuth(dErrors.OAuthInvalidGrant, "The authorization code was issued to another client or redirect_uri.")
	}

	u, err := s.grantUser(ctx, g.UserID)
	if err != nil {
		return nil, invalidGrant(err)
	}
	authz, err := s.grantAuthorization(ctx, u, c)
	if err != nil {
		return nil, invalidGrant(err)
	}

	access, err := s.grants.Save(ctx, grant.KindAccessToken, models.Grant{UserID: u.ID, ClientID: c.ClientID, Nonce: g.Nonce})
	if err != nil {
		return nil, err
	}
	refresh, err := s.grants.Save(ctx, grant.KindRefreshToken, models.Grant{UserID: u.ID, ClientID: c.ClientID})
	if err != nil {
		return nil, err
	}
	idToken, err := s.idToken(ctx, u, c.ClientID, authz.Sub, g.Nonce)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventTokenIssued, u.ID, c.ClientID)
	return &models.TokenResponse{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(grant.AccessTokenTTL.Seconds()),
		Scope:        models.Scope,
		RefreshToken: refresh,
		IDToken:      idToken,
	}, nil
}

func invalidGrant(err error) error {
	if errors.Is(err, ErrInvalidToken) {
		return dErrors.WrapOAuth(err, dErrors.OAuthInvalidGrant, "The user or their authorization of this app is no longer valid.")
	}
	return err
}

// clientAuthFailed is shared by every client authentication failure so an
// unknown, mismatched or disabled client cannot be told apart.
const clientAuthFailed = "Client authentication failed."

func (s *Service) authenticateClient(ctx context.Context, clientID, secret string) (*client.Client, error) {
	if clientID == "" || secret == "" {
		return nil, dErrors.NewOAuth(dErrors.OAuthInvalidRequest, "client_id and client_secret are required")
	}
	c, err := s.clients.FindByID(ctx, id.ClientID(clientID))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.NewOAuth(dErrors.OAuthInvalidClient, clientAuthFailed)
		}
		return nil, err
	}
	if err := s.secrets.VerifyClientSecret(ctx, secret, c.ClientSecretHash); err != nil {
		return nil, dErrors.WrapOAuth(err, dErrors.OAuthInvalidClient, clientAuthFailed)
	}
	if c.IsDisabled {
		return nil, dErrors.NewOAuth(dErrors.OAuthInvalidClient, clientAuthFailed)
	}
	return c, nil
}

// grantUser reloads the user behind a grant. A deleted or suspended user
// is ErrInvalidToken.
func (s *Service) grantUser(ctx context.Context, userID id.UserID) (*identity.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if u.IsSuspended {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// grantAuthorization rechecks the user's approval of c and the access
// policy. A missing or revoked approval, or a denial, is ErrInvalidToken.
func (s *Service) grantAuthorization(ctx context.Context, u *identity.User, c *client.Client) (*models.Authorization, error) {
	authz, err := s.authorizations.Find(ctx, u.ID, c.ClientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if authz.Revoked {
		return nil, ErrInvalidToken
	}

	allowed, err := s.policy.IsUserAllowed(ctx, u.ID, c.App())
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrInvalidToken
	}
	return authz, nil
}

// Userinfo resolves a bearer access token and returns a freshly minted id
// token for its user. Any rejected token is ErrInvalidToken.
func (s *Service) Userinfo(ctx context.Context, accessToken string) (string, error) {
	ctx, span := tracer.Start(ctx, "oauth.Userinfo")
	defer span.End()

	token, err := s.userinfo(ctx, accessToken)
	outcome := outcomeOK
	switch {
	case errors.Is(err, ErrInvalidToken):
		outcome = "invalid_token"
	case err != nil:
		outcome = "error"
		span.RecordError(err)
	}
	s.metrics.IncrementUserinfo(outcome)
	return token, err
}

func (s *Service) userinfo(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrInvalidToken
	}
	g, err := s.grants.Lookup(ctx, grant.KindAccessToken, accessToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	u, err := s.grantUser(ctx, g.UserID)
	if err != nil {
		return "", err
	}
	c, err := s.clients.FindByID(ctx, g.ClientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if c.IsDisabled {
		return "", ErrInvalidToken
	}
	authz, err := s.grantAuthorization(ctx, u, c)
	if err != nil {
		return "", err
	}

	token, err := s.idToken(ctx, u, c.ClientID, authz.Sub, g.Nonce)
	if err != nil {
		return "", err
	}
	s.logAudit(ctx, audit.EventUserInfoAccessed, u.ID, c.ClientID)
	return token, nil
}
