// Package api implements the request handler pipeline every endpoint is
// built on: request tracing, session resolution, tenant scoping, role
// gating, rate limiting, body validation, and uniform response envelopes.
//
// Stages run in sequence and fail fast; the first rejection short-circuits
// straight to the failure envelope. When all stages pass, the business
// handler runs with a fully populated RequestContext and its return value
// (or error) is normalized by the formatter.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"

	"callmaker/internal/domain"
	apierrors "callmaker/pkg/errors"
	"callmaker/pkg/logger"
	"callmaker/pkg/validator"
)

// maxBodyBytes caps request payloads, matching the platform-wide 1MB limit.
const maxBodyBytes = 1 << 20

// SessionResolver supplies the caller's authenticated session. A (nil, nil)
// return means the request carries no credentials; an error means the
// credentials were present but invalid. The pipeline treats both the same
// way: anonymous on public routes, 401 on protected ones.
type SessionResolver interface {
	Resolve(r *http.Request) (*domain.Session, error)
}

// HandlerFunc is the business handler signature. The returned value is
// wrapped in a success envelope (a *Result overrides the 200 status); a
// returned *errors.Error maps to its own status and code, and any other
// error is logged in full and reported as a generic internal error.
type HandlerFunc func(r *http.Request, rc *RequestContext) (interface{}, error)

// Pipeline holds the process-wide services the stages need. Construct one at
// startup and register every route through Handle.
type Pipeline struct {
	sessions     SessionResolver
	limiter      Limiter
	validator    *validator.Validator
	logger       logger.Logger
	defaultLimit RateLimit
}

func NewPipeline(sessions SessionResolver, limiter Limiter, val *validator.Validator, log logger.Logger, defaultLimit RateLimit) *Pipeline {
	return &Pipeline{
		sessions:     sessions,
		limiter:      limiter,
		validator:    val,
		logger:       log,
		defaultLimit: defaultLimit,
	}
}

// Handle wraps fn with the pipeline stages declared by cfg.
func (p *Pipeline) Handle(cfg RouteConfig, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := newRequestContext(r)
		w.Header().Set(RequestIDHeader, rc.RequestID)

		if apiErr := p.resolveSession(r, rc, cfg); apiErr != nil {
			writeFailure(w, rc.RequestID, apiErr)
			return
		}
		if apiErr := p.scopeTenant(rc, cfg); apiErr != nil {
			writeFailure(w, rc.RequestID, apiErr)
			return
		}
		if apiErr := p.checkRole(rc, cfg); apiErr != nil {
			writeFailure(w, rc.RequestID, apiErr)
			return
		}
		if apiErr := p.checkRateLimit(w, r, rc, cfg); apiErr != nil {
			writeFailure(w, rc.RequestID, apiErr)
			return
		}
		if apiErr := p.validateBody(w, r, rc, cfg); apiErr != nil {
			writeFailure(w, rc.RequestID, apiErr)
			return
		}

		p.invoke(w, r, rc, cfg, fn)
	}
}

func (p *Pipeline) resolveSession(r *http.Request, rc *RequestContext, cfg RouteConfig) *apierrors.Error {
	sess, err := p.sessions.Resolve(r)
	if err != nil || sess == nil {
		if cfg.requiresAuth() {
			return apierrors.Unauthorized("missing or invalid credentials")
		}
		return nil
	}
	rc.Session = sess
	return nil
}

func (p *Pipeline) scopeTenant(rc *RequestContext, cfg RouteConfig) *apierrors.Error {
	if rc.Session != nil {
		rc.OrganizationID = rc.Session.OrganizationID
	}
	if cfg.RequireOrganization && rc.OrganizationID == "" {
		return apierrors.Forbidden("no organization is associated with this account")
	}
	return nil
}

func (p *Pipeline) checkRole(rc *RequestContext, cfg RouteConfig) *apierrors.Error {
	if len(cfg.AllowedRoles) == 0 {
		return nil
	}
	// resolveSession guarantees a session here: AllowedRoles implies auth.
	for _, role := range cfg.AllowedRoles {
		if rc.Session != nil && rc.Session.Role == role {
			return nil
		}
	}
	return apierrors.Forbidden("insufficient permissions")
}

func (p *Pipeline) checkRateLimit(w http.ResponseWriter, r *http.Request, rc *RequestContext, cfg RouteConfig) *apierrors.Error {
	if cfg.NoRateLimit {
		return nil
	}
	limit := p.defaultLimit
	if cfg.RateLimit != nil {
		limit = *cfg.RateLimit
	}
	if limit.Requests <= 0 || limit.Window <= 0 {
		return nil
	}

	caller := rc.ClientIP
	if rc.Session != nil {
		caller = rc.Session.UserID.String()
	}
	key := fmt.Sprintf("ratelimit:%s:%s", cfg.Route, caller)

	count, err := p.limiter.Incr(r.Context(), key, limit.Window)
	if err != nil {
		p.logger.Error("rate limiter backend failure", map[string]interface{}{
			"route":      cfg.Route,
			"request_id": rc.RequestID,
			"error":      err.Error(),
		})
		return apierrors.Internal()
	}

	remaining := int64(limit.Requests) - count
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

	if count > int64(limit.Requests) {
		return apierrors.RateLimited()
	}
	return nil
}

func (p *Pipeline) validateBody(w http.ResponseWriter, r *http.Request, rc *RequestContext, cfg RouteConfig) *apierrors.Error {
	if cfg.NewBody == nil {
		return nil
	}

	body := cfg.NewBody()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(body); err != nil {
		// Never echo decoder errors; they can quote the malformed input.
		msg := "request body must be valid JSON"
		if err == io.EOF {
			msg = "request body is required"
		}
		return apierrors.Validation(map[string]string{"_body": msg})
	}

	if fields := p.validator.FieldErrors(body); fields != nil {
		return apierrors.Validation(fields)
	}

	rc.Body = body
	return nil
}

// invoke runs the business handler and formats its outcome. It is the
// outermost error boundary for handler code: panics and unrecognized errors
// are logged with full detail and reported to the caller as a generic
// internal error.
func (p *Pipeline) invoke(w http.ResponseWriter, r *http.Request, rc *RequestContext, cfg RouteConfig, fn HandlerFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("handler panic", map[string]interface{}{
				"route":      cfg.Route,
				"request_id": rc.RequestID,
				"panic":      fmt.Sprintf("%v", rec),
				"stack":      string(debug.Stack()),
			})
			writeFailure(w, rc.RequestID, apierrors.Internal())
		}
	}()

	v, err := fn(r, rc)
	if err != nil {
		writeFailure(w, rc.RequestID, p.mapError(rc, cfg, err))
		return
	}

	status := http.StatusOK
	data := v
	if res, ok := v.(*Result); ok {
		if res.Status != 0 {
			status = res.Status
		}
		data = res.Data
	}
	writeSuccess(w, status, data, rc.RequestID)
}

func (p *Pipeline) mapError(rc *RequestContext, cfg RouteConfig, err error) *apierrors.Error {
	if apiErr, ok := apierrors.AsError(err); ok {
		return apiErr
	}
	p.logger.Error("unhandled handler error", map[string]interface{}{
		"route":      cfg.Route,
		"request_id": rc.RequestID,
		"error":      err.Error(),
	})
	return apierrors.Internal()
}
