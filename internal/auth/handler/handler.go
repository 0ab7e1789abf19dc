package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigil/internal/auth/models"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	authmw "sigil/pkg/platform/middleware/auth"
	request "sigil/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	StartRegistration(ctx context.Context, registrationToken string) (*models.Challenge, error)
	FinishRegistration(ctx context.Context, req models.FinishRegistrationRequest) error
	StartLogin(ctx context.Context) (*models.Challenge, error)
	FinishLogin(ctx context.Context, req models.FinishLoginRequest) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, sessionID id.SessionID) error
}

// Handler serves the passkey ceremonies and session endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the unauthenticated routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/register/passkey/initiate", h.handleStartRegistration)
	r.Post("/v1/auth/register/passkey/finalize", h.handleFinishRegistration)
	r.Post("/v1/auth/login/passkey/initiate", h.handleStartLogin)
	r.Post("/v1/auth/login/passkey/finalize", h.handleFinishLogin)
	r.Post("/v1/auth/refresh", h.handleRefresh)
}

// RegisterAuthenticated mounts logout. The caller chains auth.RequireUser
// in front.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/v1/auth/logout", h.handleLogout)
}

func (h *Handler) handleStartRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.StartRegistrationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.StartRegistration(ctx, req.RegistrationToken)
	if err != nil {
		h.fail(ctx, w, err, "start registration")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.FinishRegistrationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.PKCredential) == 0 {
		httputil.WriteError(w, dErrors.BadRequest("pk_credential is required"))
		return
	}
	if err := h.svc.FinishRegistration(ctx, req); err != nil {
		h.fail(ctx, w, err, "finish registration")
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleStartLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.svc.StartLogin(ctx)
	if err != nil {
		h.fail(ctx, w, err, "start login")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.FinishLoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(req.PKCredential) == 0 {
		httputil.WriteError(w, dErrors.BadRequest("pk_credential is required"))
		return
	}
	res, err := h.svc.FinishLogin(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "finish login")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	pair, err := h.svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.fail(ctx, w, err, "refresh session")
		return
	}
	httputil.WriteData(w, http.StatusOK, pair)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := authmw.ClaimsFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	if err := h.svc.Logout(ctx, claims.SessionID); err != nil {
		h.fail(ctx, w, err, "logout")
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
