// Package handler registers the HTTP endpoints, all built on the request
// pipeline.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"callmaker/internal/api"
	"callmaker/internal/auth"
	apierrors "callmaker/pkg/errors"
	"callmaker/pkg/logger"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	service *auth.Service
	logger  logger.Logger
}

func NewAuthHandler(service *auth.Service, log logger.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: log}
}

// Register wires the auth routes. Both are public and carry strict per-IP
// rate limits since they are credential endpoints.
func (h *AuthHandler) Register(r *mux.Router, p *api.Pipeline) {
	r.Handle("/api/v1/auth/register", p.Handle(api.RouteConfig{
		Route:     "auth.register",
		NewBody:   func() interface{} { return &auth.RegisterRequest{} },
		RateLimit: &api.RateLimit{Requests: 5, Window: time.Minute},
	}, h.register)).Methods(http.MethodPost)

	r.Handle("/api/v1/auth/login", p.Handle(api.RouteConfig{
		Route:     "auth.login",
		NewBody:   func() interface{} { return &auth.LoginRequest{} },
		RateLimit: &api.RateLimit{Requests: 10, Window: time.Minute},
	}, h.login)).Methods(http.MethodPost)
}

func (h *AuthHandler) register(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	req := rc.Body.(*auth.RegisterRequest)

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, apierrors.ErrUserAlreadyExists) {
			return nil, apierrors.Conflict("a user with this email already exists")
		}
		return nil, err
	}
	return api.Created(resp), nil
}

func (h *AuthHandler) login(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	req := rc.Body.(*auth.LoginRequest)

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, apierrors.ErrInvalidCredentials) {
			return nil, apierrors.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	return resp, nil
}
