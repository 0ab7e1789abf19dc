// Package requesttime pins a single "now" for the lifetime of a request so
// audit timestamps and token iat/exp values agree.
package requesttime

import (
	"net/http"
	"time"

	"sigil/pkg/requestcontext"
)

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
