package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigil/internal/oauth/models"
	oauthservice "sigil/internal/oauth/service"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	authmw "sigil/pkg/platform/middleware/auth"
	request "sigil/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	Preview(ctx context.Context, userID id.UserID, req models.AuthorizeRequest) (*models.Preview, error)
	Approve(ctx context.Context, userID id.UserID, req models.AuthorizeRequest) (*models.Approval, error)
	Token(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error)
	Userinfo(ctx context.Context, accessToken string) (string, error)
	ListAuthorizations(ctx context.Context, userID id.UserID) ([]*models.Authorization, error)
	RevokeAuthorization(ctx context.Context, userID id.UserID, clientID id.ClientID) error
}

// Handler serves the OAuth endpoints and the user's list of approved apps.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the client-facing endpoints. They authenticate the client
// or the bearer access token themselves.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/oauth/token", h.handleToken)
	r.Get("/v1/oauth/userinfo", h.handleUserinfo)
	r.Post("/v1/oauth/userinfo", h.handleUserinfo)
}

// RegisterAuthenticated mounts the routes acting for the signed-in user.
// The caller chains auth.RequireUser in front.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/v1/oauth/authorize/preview", h.handlePreview)
	r.Post("/v1/oauth/authorize/approve", h.handleApprove)
	r.Get("/v1/user/authorizations", h.handleListAuthorizations)
	r.Delete("/v1/user/authorizations/{client_id}", h.handleRevokeAuthorization)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := authmw.PrincipalFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	var req models.AuthorizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.Preview(ctx, principal.UserID, req)
	if err != nil {
		h.fail(ctx, w, err, "preview authorization")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := authmw.PrincipalFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	var req models.AuthorizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.Approve(ctx, principal.UserID, req)
	if err != nil {
		h.fail(ctx, w, err, "approve authorization")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// handleToken accepts client credentials from HTTP Basic or the form body.
// Basic wins when both are present.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		httputil.WriteOAuthError(w, dErrors.WrapOAuth(err, dErrors.OAuthInvalidRequest, "The request body could not be parsed."))
		return
	}
	req := models.TokenRequest{
		GrantType:    r.PostForm.Get("grant_type"),
		Code:         r.PostForm.Get("code"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
		ClientID:     r.PostForm.Get("client_id"),
		ClientSecret: r.PostForm.Get("client_secret"),
	}
	if clientID, secret, ok := r.BasicAuth(); ok {
		req.ClientID, req.ClientSecret = clientID, secret
	}

	res, err := h.svc.Token(ctx, req)
	if err != nil {
		var oe *dErrors.OAuthError
		if errors.As(err, &oe) {
			h.logger.DebugContext(ctx, "token exchange rejected",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		} else {
			h.logger.ErrorContext(ctx, "token exchange failed",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteOAuthError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	httputil.WriteJSON(w, http.StatusOK, res)
}

// handleUserinfo answers with the id token itself as application/jwt.
func (h *Handler) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, _ := authmw.BearerToken(r)
	idToken, err := h.svc.Userinfo(ctx, token)
	if err != nil {
		if !errors.Is(err, oauthservice.ErrInvalidToken) {
			h.logger.ErrorContext(ctx, "userinfo failed",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
		}
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/jwt")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(idToken))
}

func (h *Handler) handleListAuthorizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := authmw.PrincipalFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	list, err := h.svc.ListAuthorizations(ctx, principal.UserID)
	if err != nil {
		h.fail(ctx, w, err, "list authorizations")
		return
	}
	httputil.WriteData(w, http.StatusOK, list)
}

func (h *Handler) handleRevokeAuthorization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := authmw.PrincipalFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeUnknownClient))
		return
	}
	if err := h.svc.RevokeAuthorization(ctx, principal.UserID, clientID); err != nil {
		h.fail(ctx, w, err, "revoke authorization")
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, op string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.DebugContext(ctx, op+" rejected",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
