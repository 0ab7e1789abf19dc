package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	id "sigil/pkg/domain"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

type stubValidator map[string]*AccessClaims

func (v stubValidator) ValidateAccessToken(token string) (*AccessClaims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

type stubLoader struct {
	principals map[id.UserID]*Principal
	err        error
}

func (l stubLoader) LoadPrincipal(_ context.Context, userID id.UserID) (*Principal, error) {
	if l.err != nil {
		return nil, l.err
	}
	if p, ok := l.principals[userID]; ok {
		return p, nil
	}
	return nil, sentinel.ErrNotFound
}

type AuthMiddlewareSuite struct {
	suite.Suite
	logger    *slog.Logger
	validator stubValidator
	loader    stubLoader
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.validator = stubValidator{
		"good":      {UserID: 1, SessionID: 99},
		"suspended": {UserID: 2, SessionID: 100},
		"ghost":     {UserID: 3, SessionID: 101},
	}
	s.loader = stubLoader{principals: map[id.UserID]*Principal{
		1: {UserID: 1},
		2: {UserID: 2, IsSuspended: true},
	}}
}

func (s *AuthMiddlewareSuite) chain(final http.HandlerFunc) http.Handler {
	return Authenticate(s.validator, s.logger)(RequireUser(s.loader, s.logger)(final))
}

func (s *AuthMiddlewareSuite) do(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/user", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func (s *AuthMiddlewareSuite) TestRequireUser() {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, found := PrincipalFromContext(r.Context())
		s.Require().True(found)
		s.Equal(id.UserID(1), p.UserID)
		s.Equal(id.SessionID(99), requestcontext.SessionID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})

	s.Run("valid token passes", func() {
		s.Equal(http.StatusTeapot, s.do(s.chain(ok), "good").Code)
	})

	s.Run("missing token is login_required", func() {
		rr := s.do(s.chain(ok), "")
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), "login_required")
	})

	s.Run("invalid token is login_required", func() {
		rr := s.do(s.chain(ok), "forged")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("deleted user", func() {
		rr := s.do(s.chain(ok), "ghost")
		s.Equal(http.StatusBadRequest, rr.Code)
		s.Contains(rr.Body.String(), "user_deleted")
	})

	s.Run("suspended user", func() {
		rr := s.do(s.chain(ok), "suspended")
		s.Equal(http.StatusForbidden, rr.Code)
		s.Contains(rr.Body.String(), "user_suspended")
	})

	s.Run("loader failure is internal", func() {
		s.loader.err = errors.New("db down")
		defer func() { s.loader.err = nil }()
		rr := s.do(s.chain(ok), "good")
		s.Equal(http.StatusInternalServerError, rr.Code)
		s.NotContains(rr.Body.String(), "db down")
	})
}

func (s *AuthMiddlewareSuite) TestAuthenticateIgnoresNonBearer() {
	var sawClaims bool
	h := Authenticate(s.validator, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawClaims = ClaimsFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic Z29vZDo=")
	h.ServeHTTP(httptest.NewRecorder(), req)
	s.False(sawClaims)
}

func (s *AuthMiddlewareSuite) TestBearerToken() {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer abc", token: "abc", ok: true},
		{header: "BEARER  abc ", token: "abc", ok: true},
		{header: "Basic abc"},
		{header: "Bearer "},
		{header: "Bearerabc"},
		{header: ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tc.header)
		token, ok := BearerToken(req)
		s.Equal(tc.ok, ok, tc.header)
		s.Equal(tc.token, token, tc.header)
	}
}
