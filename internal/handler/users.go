package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"callmaker/internal/api"
	"callmaker/internal/domain"
	"callmaker/internal/repository/postgres"
	apierrors "callmaker/pkg/errors"
	"callmaker/pkg/logger"
)

// UserHandler serves profile and organization endpoints.
type UserHandler struct {
	users  *postgres.UserRepository
	orgs   *postgres.OrganizationRepository
	logger logger.Logger
}

func NewUserHandler(users *postgres.UserRepository, orgs *postgres.OrganizationRepository, log logger.Logger) *UserHandler {
	return &UserHandler{users: users, orgs: orgs, logger: log}
}

// UpdateProfileRequest is the PATCH /me payload.
type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (h *UserHandler) Register(r *mux.Router, p *api.Pipeline) {
	r.Handle("/api/v1/me", p.Handle(api.RouteConfig{
		Route:       "users.me",
		RequireAuth: true,
	}, h.me)).Methods(http.MethodGet)

	r.Handle("/api/v1/me", p.Handle(api.RouteConfig{
		Route:       "users.update_profile",
		RequireAuth: true,
		NewBody:     func() interface{} { return &UpdateProfileRequest{} },
	}, h.updateProfile)).Methods(http.MethodPatch)

	r.Handle("/api/v1/organization", p.Handle(api.RouteConfig{
		Route:               "organizations.current",
		RequireAuth:         true,
		RequireOrganization: true,
	}, h.organization)).Methods(http.MethodGet)

	r.Handle("/api/v1/users", p.Handle(api.RouteConfig{
		Route:               "users.list",
		RequireAuth:         true,
		RequireOrganization: true,
		AllowedRoles:        []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin},
	}, h.list)).Methods(http.MethodGet)
}

func (h *UserHandler) me(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	user, err := h.users.FindByID(r.Context(), rc.Session.UserID)
	if err != nil {
		if errors.Is(err, apierrors.ErrUserNotFound) {
			return nil, apierrors.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (h *UserHandler) updateProfile(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	req := rc.Body.(*UpdateProfileRequest)

	user, err := h.users.UpdateName(r.Context(), rc.Session.UserID, req.Name)
	if err != nil {
		if errors.Is(err, apierrors.ErrUserNotFound) {
			return nil, apierrors.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (h *UserHandler) organization(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	orgID, err := uuid.Parse(rc.OrganizationID)
	if err != nil {
		return nil, apierrors.Wrap(err, "malformed organization id in session")
	}

	org, err := h.orgs.FindByID(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, apierrors.ErrOrganizationNotFound) {
			return nil, apierrors.NotFound("organization not found")
		}
		return nil, err
	}
	return org, nil
}

// list returns the organization's users. The pipeline has already guaranteed
// an organization id and an admin role.
func (h *UserHandler) list(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	orgID, err := uuid.Parse(rc.OrganizationID)
	if err != nil {
		return nil, apierrors.Wrap(err, "malformed organization id in session")
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	users, err := h.users.ListByOrganization(r.Context(), orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	}, nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
