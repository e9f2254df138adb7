package api

import (
	"time"

	"callmaker/internal/domain"
)

// RateLimit is a request budget: at most Requests per Window per caller.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RouteConfig declares how the pipeline treats one endpoint. It is supplied
// at registration time and never mutated afterwards.
type RouteConfig struct {
	// Route labels the endpoint in logs and rate-limit keys, e.g. "auth.login".
	Route string

	RequireAuth bool

	// RequireOrganization rejects sessions without an organization and
	// guarantees the handler a non-empty RequestContext.OrganizationID.
	// Implies RequireAuth.
	RequireOrganization bool

	// AllowedRoles restricts the route to the listed roles. Empty means no
	// restriction. Non-empty implies RequireAuth.
	AllowedRoles []domain.Role

	// NewBody returns a fresh instance of the expected request payload. The
	// pipeline decodes and validates into it and attaches the result to the
	// context. Nil means the route takes no body.
	NewBody func() interface{}

	// RateLimit overrides the pipeline default for this route.
	RateLimit *RateLimit

	// NoRateLimit exempts the route entirely (health checks, internal routes).
	NoRateLimit bool
}

func (cfg RouteConfig) requiresAuth() bool {
	return cfg.RequireAuth || cfg.RequireOrganization || len(cfg.AllowedRoles) > 0
}
