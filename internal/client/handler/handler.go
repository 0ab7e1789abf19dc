package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigil/internal/client/models"
	"sigil/internal/policy"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	request "sigil/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	ListClients(ctx context.Context) ([]*models.Client, error)
	GetClient(ctx context.Context, clientID id.ClientID) (*models.Detail, error)
	CreateClient(ctx context.Context, in models.ClientInput) (*models.Created, error)
	UpdateClient(ctx context.Context, clientID id.ClientID, in models.ClientInput) (*models.Client, error)
	RotateSecret(ctx context.Context, clientID id.ClientID) (*models.Created, error)
	SetGroupPermissionOverrides(ctx context.Context, clientID id.ClientID, in []policy.GroupPermissionOverride) (*models.GroupPermissionOverrides, error)
	SetGroupRoleOverrides(ctx context.Context, clientID id.ClientID, in []policy.GroupRoleOverride) (*models.GroupRoleOverrides, error)
	SetUserPermission(ctx context.Context, clientID id.ClientID, userID id.UserID, granted bool) error
	DeleteUserPermission(ctx context.Context, clientID id.ClientID, userID id.UserID) error
	SetUserRole(ctx context.Context, clientID id.ClientID, userID id.UserID, role string, granted bool) error
	DeleteUserRole(ctx context.Context, clientID id.ClientID, userID id.UserID, role string) error
}

// Handler serves the admin client registry.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterAdmin mounts the client routes. The caller chains
// auth.RequireUser and admin.RequireAdmin in front.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/v1/clients", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{client_id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Post("/rotate-secret", h.handleRotateSecret)
			r.Patch("/group-overrides/permissions", h.handleGroupPermissions)
			r.Patch("/group-overrides/roles", h.handleGroupRoles)
			r.Patch("/user-overrides/{user_id}/permission", h.handleSetUserPermission)
			r.Delete("/user-overrides/{user_id}/permission", h.handleDeleteUserPermission)
			r.Patch("/user-overrides/{user_id}/roles/{role}", h.handleSetUserRole)
			r.Delete("/user-overrides/{user_id}/roles/{role}", h.handleDeleteUserRole)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clients, err := h.svc.ListClients(ctx)
	if err != nil {
		h.fail(ctx, w, err, "list clients")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"clients": clients})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in models.ClientInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.CreateClient(ctx, in)
	if err != nil {
		h.fail(ctx, w, err, "create client")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.GetClient(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, err, "get client")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var in models.ClientInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.UpdateClient(ctx, clientID, in)
	if err != nil {
		h.fail(ctx, w, err, "update client")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"client": c})
}

func (h *Handler) handleRotateSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.RotateSecret(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, err, "rotate client secret")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleGroupPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var body models.GroupPermissionOverrides
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.SetGroupPermissionOverrides(ctx, clientID, body.Overrides)
	if err != nil {
		h.fail(ctx, w, err, "replace group permission overrides")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleGroupRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var body models.GroupRoleOverrides
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.SetGroupRoleOverrides(ctx, clientID, body.Overrides)
	if err != nil {
		h.fail(ctx, w, err, "replace group role overrides")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleSetUserPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, userID, err := parseOverridePath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	granted, err := decodeGrant(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.SetUserPermission(ctx, clientID, userID, granted); err != nil {
		h.fail(ctx, w, err, "set user permission override")
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleDeleteUserPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, userID, err := parseOverridePath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteUserPermission(ctx, clientID, userID); err != nil {
		h.fail(ctx, w, err, "delete user permission override")
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, userID, err := parseOverridePath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	granted, err := decodeGrant(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.SetUserRole(ctx, clientID, userID, chi.URLParam(r, "role"), granted); err != nil {
		h.fail(ctx, w, err, "set user role override")
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleDeleteUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, userID, err := parseOverridePath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteUserRole(ctx, clientID, userID, chi.URLParam(r, "role")); err != nil {
		h.fail(ctx, w, err, "delete user role override")
		return
	}
	httputil.WriteNoContent(w)
}

func parseOverridePath(r *http.Request) (id.ClientID, id.UserID, error) {
	clientID, err := id.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		return "", 0, err
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		return "", 0, err
	}
	return clientID, userID, nil
}

func decodeGrant(r *http.Request) (bool, error) {
	var body models.Grant
	if err := httputil.DecodeJSON(r, &body); err != nil {
		return false, err
	}
	if body.Granted == nil {
		return false, dErrors.BadRequest("granted is required")
	}
	return *body.Granted, nil
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
