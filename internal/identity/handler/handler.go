package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sigil/internal/identity/models"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	"sigil/pkg/platform/httputil"
	authmw "sigil/pkg/platform/middleware/auth"
	request "sigil/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the identity surface the HTTP layer needs.
type Service interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	GetUserWithGroups(ctx context.Context, userID id.UserID) (*models.UserWithGroups, error)
	CreateUser(ctx context.Context, in models.UserInput) (*models.User, error)
	UpdateUser(ctx context.Context, userID id.UserID, in models.UserInput) (*models.User, error)
	SendRegistrationLink(ctx context.Context, userID id.UserID) error
	ListGroups(ctx context.Context) ([]*models.Group, error)
	GetGroup(ctx context.Context, groupID id.GroupID) (*models.Group, error)
	CreateGroup(ctx context.Context, in models.GroupInput) (*models.Group, error)
	UpdateGroup(ctx context.Context, groupID id.GroupID, in models.GroupInput) (*models.Group, error)
	ListMembers(ctx context.Context, groupID id.GroupID) (*models.GroupMembers, error)
	AddMember(ctx context.Context, groupID id.GroupID, userID id.UserID) (*models.GroupMembers, error)
	RemoveMember(ctx context.Context, groupID id.GroupID, userID id.UserID) (*models.GroupMembers, error)
}

// Handler serves user and group endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterAuthenticated mounts the routes available to any signed-in user.
// The caller chains auth.RequireUser in front.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/v1/user", h.handleCurrentUser)
	r.Get("/v1/user/groups", h.handleCurrentUserGroups)
}

// RegisterAdmin mounts the admin CRUD routes. The caller chains
// auth.RequireUser and admin.RequireAdmin in front.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/v1/users", func(r chi.Router) {
		r.Get("/", h.handleListUsers)
		r.Post("/", h.handleCreateUser)
		r.Get("/{user_id}", h.handleGetUser)
		r.Patch("/{user_id}", h.handleUpdateUser)
		r.Post("/{user_id}/send-registration-link", h.handleSendRegistrationLink)
	})
	r.Route("/v1/groups", func(r chi.Router) {
		r.Get("/", h.handleListGroups)
		r.Post("/", h.handleCreateGroup)
		r.Get("/{group_id}", h.handleGetGroup)
		r.Patch("/{group_id}", h.handleUpdateGroup)
		r.Get("/{group_id}/members", h.handleListMembers)
		r.Put("/{group_id}/members/{user_id}", h.handleAddMember)
		r.Delete("/{group_id}/members/{user_id}", h.handleRemoveMember)
	})
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := authmw.PrincipalFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	u, err := h.svc.GetUser(ctx, principal.UserID)
	if err != nil {
		h.fail(ctx, w, err, "get current user")
		return
	}
	httputil.WriteData(w, http.StatusOK, u)
}

func (h *Handler) handleCurrentUserGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := authmw.PrincipalFromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.Of(dErrors.CodeLoginRequired))
		return
	}
	res, err := h.svc.GetUserWithGroups(ctx, principal.UserID)
	if err != nil {
		h.fail(ctx, w, err, "get current user groups")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.svc.ListUsers(ctx)
	if err != nil {
		h.fail(ctx, w, err, "list users")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in models.UserInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.svc.CreateUser(ctx, in)
	if err != nil {
		h.fail(ctx, w, err, "create user")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.GetUserWithGroups(ctx, userID)
	if err != nil {
		h.fail(ctx, w, err, "get user")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var in models.UserInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	u, err := h.svc.UpdateUser(ctx, userID, in)
	if err != nil {
		h.fail(ctx, w, err, "update user")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) handleSendRegistrationLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.SendRegistrationLink(ctx, userID); err != nil {
		h.fail(ctx, w, err, "send registration link")
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := h.svc.ListGroups(ctx)
	if err != nil {
		h.fail(ctx, w, err, "list groups")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in models.GroupInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	g, err := h.svc.CreateGroup(ctx, in)
	if err != nil {
		h.fail(ctx, w, err, "create group")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"group": g})
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, err := id.ParseGroupID(chi.URLParam(r, "group_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	g, err := h.svc.GetGroup(ctx, groupID)
	if err != nil {
		h.fail(ctx, w, err, "get group")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"group": g})
}

func (h *Handler) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, err := id.ParseGroupID(chi.URLParam(r, "group_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var in models.GroupInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	g, err := h.svc.UpdateGroup(ctx, groupID, in)
	if err != nil {
		h.fail(ctx, w, err, "update group")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"group": g})
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID, err := id.ParseGroupID(chi.URLParam(r, "group_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.ListMembers(ctx, groupID)
	if err != nil {
		h.fail(ctx, w, err, "list group members")
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "add group member", h.svc.AddMember)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "remove group member", h.svc.RemoveMember)
}

func (h *Handler) membership(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	change func(context.Context, id.GroupID, id.UserID) (*models.GroupMembers, error),
) {
	ctx := r.Context()
	groupID, err := id.ParseGroupID(chi.URLParam(r, "group_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "user_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := change(ctx, groupID, userID)
	if err != nil {
		h.fail(ctx, w, err, op)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
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
