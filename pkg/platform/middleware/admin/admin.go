package admin

import (
	"log/slog"
	"net/http"

	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	"sigil/pkg/platform/middleware/auth"
	request "sigil/pkg/platform/middleware/request"
)

// RequireAdmin must run after auth.RequireUser.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := auth.PrincipalFromContext(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
				return
			}
			if !principal.IsAdmin {
				logger.WarnContext(ctx, "admin route denied",
					"user_id", principal.UserID.String(),
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.Of(dErrors.CodeAdminRequired))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
