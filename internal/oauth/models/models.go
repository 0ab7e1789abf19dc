package models

import (
	"strings"

	client "sigil/internal/client/models"
	id "sigil/pkg/domain"
)

const (
	ResponseTypeCode    = "code"
	ResponseTypeToken   = "token"
	ResponseTypeIDToken = "id_token"

	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"

	GrantTypeAuthorizationCode = "authorization_code"

	// Scope is what every issued token covers.
	Scope = "openid profile email"
)

// AuthorizeRequest is the body of both preview and approve.
type AuthorizeRequest struct {
	Scope        string `json:"scope"`
	ResponseType string `json:"response_type"`
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	State        string `json:"state,omitempty"`
	ResponseMode string `json:"response_mode,omitempty"`
	Nonce        string `json:"nonce,omitempty"`
}

// ResponseTypes splits response_type on whitespace. An empty value means
// the code flow.
func (r AuthorizeRequest) ResponseTypes() []string {
	types := strings.Fields(r.ResponseType)
	if len(types) == 0 {
		return []string{ResponseTypeCode}
	}
	return types
}

func (r AuthorizeRequest) Wants(responseType string) bool {
	for _, t := range r.ResponseTypes() {
		if t == responseType {
			return true
		}
	}
	return false
}

// UseFragment picks where approve puts the artifacts. An explicit mode
// wins; otherwise anything beyond a bare code goes in the fragment.
func (r AuthorizeRequest) UseFragment() bool {
	if r.ResponseMode != "" {
		return r.ResponseMode == ResponseModeFragment
	}
	return r.Wants(ResponseTypeToken) || r.Wants(ResponseTypeIDToken)
}

type Preview struct {
	Client *client.Client `json:"client"`
}

type Approval struct {
	RedirectTo string `json:"redirect_to"`
}

// TokenRequest is the form body of the token endpoint.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// Authorization records that a user approved a client. Sub is the stable
// pairwise subject handed to that client.
type Authorization struct {
	UserID   id.UserID   `json:"user_id"`
	ClientID id.ClientID `json:"client_id"`
	Sub      string      `json:"sub"`
	LastUsed int64       `json:"last_used"`
	Revoked  bool        `json:"revoked"`
}

// Grant is the value behind an authorization code or opaque token.
type Grant struct {
	UserID      id.UserID   `json:"user_id"`
	ClientID    id.ClientID `json:"client_id"`
	Nonce       string      `json:"nonce,omitempty"`
	RedirectURI string      `json:"redirect_uri,omitempty"`
}
