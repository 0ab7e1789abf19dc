package testutil

import (
	"net/http"

	id "sigil/pkg/domain"
	authmw "sigil/pkg/platform/middleware/auth"
)

// AsUser attaches the principal RequireUser would have loaded.
func AsUser(req *http.Request, p *authmw.Principal) *http.Request {
	return req.WithContext(authmw.WithPrincipal(req.Context(), p))
}

// WithSession attaches validated access claims for userID and sessionID, as
// Authenticate does for a good bearer token.
func WithSession(req *http.Request, userID id.UserID, sessionID id.SessionID) *http.Request {
	claims := &authmw.AccessClaims{UserID: userID, SessionID: sessionID}
	return req.WithContext(authmw.WithClaims(req.Context(), claims))
}
