package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sigil/internal/auth/secrets"
	identity "sigil/internal/identity/models"
	"sigil/internal/oauth/models"
	"sigil/internal/oauth/store/grant"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/audit"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// Approve records the user's consent and builds the redirect back to the
// client carrying the requested artifacts.
func (s *Service) Approve(ctx context.Context, userID id.UserID, req models.AuthorizeRequest) (*models.Approval, error) {
	ctx, span := tracer.Start(ctx, "oauth.Approve")
	defer span.End()

	c, err := s.findClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	u, err := s.loadActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(ctx, userID, c, req); err != nil {
		return nil, err
	}

	sub, err := secrets.Alphanumeric(subLength)
	if err != nil {
		return nil, dErrors.Internal(err, "failed to generate subject")
	}
	authz := &models.Authorization{
		UserID:   userID,
		ClientID: c.ClientID,
		Sub:      sub,
		LastUsed: requestcontext.Now(ctx).Unix(),
	}
	if err := s.authorizations.Upsert(ctx, authz); err != nil {
		return nil, dErrors.Internal(err, "failed to save authorization")
	}

	params := url.Values{}
	if req.Wants(models.ResponseTypeCode) {
		code, err := s.grants.Save(ctx, grant.KindCode, models.Grant{
			UserID:      userID,
			ClientID:    c.ClientID,
			Nonce:       req.Nonce,
			RedirectURI: req.RedirectURI,
		})
		if err != nil {
			return nil, dErrors.Internal(err, "failed to issue code")
		}
		params.Set("code", code)
	}
	if req.Wants(models.ResponseTypeToken) {
		token, err := s.grants.Save(ctx, grant.KindAccessToken, models.Grant{
			UserID:   userID,
			ClientID: c.ClientID,
			Nonce:    req.Nonce,
		})
		if err != nil {
			return nil, dErrors.Internal(err, "failed to issue access token")
		}
		params.Set("access_token", token)
		params.Set("token_type", "bearer")
		params.Set("expires_in", strconv.FormatInt(int64(grant.AccessTokenTTL.Seconds()), 10))
	}
	if req.Wants(models.ResponseTypeIDToken) {
		idToken, err := s.idToken(ctx, u, c.ClientID, authz.Sub, req.Nonce)
		if err != nil {
			return nil, dErrors.Internal(err, "failed to mint id token")
		}
		params.Set("id_token", idToken)
	}
	if req.State != "" {
		params.Set("state", req.State)
	}

	redirectTo, err := appendParams(req.RedirectURI, params, req.UseFragment())
	if err != nil {
		return nil, dErrors.InvalidRedirectURI(req.RedirectURI)
	}
	s.logAudit(ctx, audit.EventAuthorizationGrant, userID, c.ClientID,
		"response_type", strings.Join(req.ResponseTypes(), " "))
	return &models.Approval{RedirectTo: redirectTo}, nil
}

// appendParams adds params to the query or the fragment of rawURI. Query
// parameters already on the URI are kept.
func appendParams(rawURI string, params url.Values, fragment bool) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	if fragment {
		u.Fragment, u.RawFragment = "", ""
		return u.String() + "#" + params.Encode(), nil
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

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
