package oidc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigil/pkg/platform/httputil"
)

// Discovery is the openid-configuration document.
type Discovery struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	ResponseModesSupported            []string `json:"response_modes_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	UserinfoSigningAlgValuesSupported []string `json:"userinfo_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

func NewDiscovery(issuer string) Discovery {
	return Discovery{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/oauth/authorize",
		TokenEndpoint:                     issuer + "/v1/oauth/token",
		UserinfoEndpoint:                  issuer + "/v1/oauth/userinfo",
		JWKSURI:                           issuer + "/.well-known/jwks",
		ResponseTypesSupported:            []string{"code", "id_token", "id_token token", "code id_token token"},
		ResponseModesSupported:            []string{"query", "fragment"},
		SubjectTypesSupported:             []string{"pairwise", "public"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
		UserinfoSigningAlgValuesSupported: []string{"RS256"},
		ScopesSupported:                   []string{"openid", "profile", "email"},
		ClaimsSupported: []string{
			"iss", "sub", "aud", "exp", "iat", "auth_time", "nonce",
			"name", "preferred_username", "email", "email_verified", "groups", "roles",
		},
	}
}

// Handler serves the well-known documents. Neither is wrapped in the data
// envelope; OIDC clients expect the bare documents.
type Handler struct {
	discovery Discovery
	keys      *KeySet
}

func NewHandler(issuer string, keys *KeySet) *Handler {
	return &Handler{discovery: NewDiscovery(issuer), keys: keys}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/.well-known/openid-configuration", h.handleDiscovery)
	r.Get("/.well-known/jwks", h.handleJWKS)
}

func (h *Handler) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.discovery)
}

func (h *Handler) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.keys.JWKS())
}
