package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"callmaker/internal/api"
)

// SystemHandler serves operational endpoints.
type SystemHandler struct {
	version string
}

func NewSystemHandler(version string) *SystemHandler {
	return &SystemHandler{version: version}
}

func (h *SystemHandler) Register(r *mux.Router, p *api.Pipeline) {
	// Health checks are anonymous and exempt from rate limiting so load
	// balancers can probe freely.
	r.Handle("/health", p.Handle(api.RouteConfig{
		Route:       "system.health",
		NoRateLimit: true,
	}, h.health)).Methods(http.MethodGet)
}

func (h *SystemHandler) health(r *http.Request, rc *api.RequestContext) (interface{}, error) {
	return map[string]string{
		"status":  "healthy",
		"version": h.version,
	}, nil
}
