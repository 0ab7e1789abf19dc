package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	request "sigil/pkg/platform/middleware/request"
	"sigil/pkg/platform/sentinel"
	"sigil/pkg/requestcontext"
)

// AccessClaims is the subset of the access token the HTTP layer needs.
type AccessClaims struct {
	UserID       id.UserID
	SessionID    id.SessionID
	CredentialID id.CredentialID
}

// TokenValidator verifies a bearer access token.
type TokenValidator interface {
	ValidateAccessToken(token string) (*AccessClaims, error)
}

// Principal is the caller after reloading their user row.
type Principal struct {
	UserID      id.UserID
	IsAdmin     bool
	IsSuspended bool
}

// PrincipalLoader reloads the user behind the claims. It returns
// sentinel.ErrNotFound when the user no longer exists.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID id.UserID) (*Principal, error)
}

type contextKeyClaims struct{}
type contextKeyPrincipal struct{}

func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	c, ok := ctx.Value(contextKeyClaims{}).(*AccessClaims)
	return c, ok
}

func WithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	ctx = requestcontext.WithUserID(ctx, claims.UserID)
	ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
	return context.WithValue(ctx, contextKeyClaims{}, claims)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(*Principal)
	return p, ok
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal{}, p)
}

// BearerToken returns the token from an "Authorization: Bearer" header.
// The scheme name is case-insensitive.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate attaches claims when a valid bearer token is present. It
// never rejects; routes that need a user chain RequireUser after it.
func Authenticate(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				logger.DebugContext(ctx, "ignoring invalid access token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RequireUser rejects requests without a live, unsuspended user.
func RequireUser(loader PrincipalLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, ok := ClaimsFromContext(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
				return
			}

			principal, err := loader.LoadPrincipal(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					httputil.WriteError(w, dErrors.Of(dErrors.CodeUserDeleted))
					return
				}
				logger.ErrorContext(ctx, "failed to load principal",
					"error", err,
					"user_id", claims.UserID.String(),
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Internal(err, "load principal"))
				return
			}
			if principal.IsSuspended {
				logger.WarnContext(ctx, "suspended user rejected",
					"user_id", claims.UserID.String(),
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Of(dErrors.CodeUserSuspended))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}
