package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"callmaker/internal/domain"
)

// RequestIDHeader is set on every response, success or failure.
const RequestIDHeader = "X-Request-Id"

const requestIDPrefix = "req_"

// unknownIP is the sentinel used when no client address can be derived.
const unknownIP = "unknown"

// RequestContext carries everything the pipeline derives for a single
// request. It is created at pipeline entry, populated stage by stage, and
// handed to the business handler. It never outlives the request.
type RequestContext struct {
	RequestID string
	ClientIP  string
	// Session is nil for anonymous requests on routes that allow them.
	Session *domain.Session
	// OrganizationID is guaranteed non-empty when the route declared
	// RequireOrganization; handlers must scope every query by it.
	OrganizationID string
	// Body is the decoded, validated request payload when the route declared
	// one. Handlers must never re-read the raw body.
	Body        interface{}
	RouteParams map[string]string
}

func newRequestContext(r *http.Request) *RequestContext {
	return &RequestContext{
		RequestID:   requestIDPrefix + uuid.NewString(),
		ClientIP:    clientIP(r),
		RouteParams: mux.Vars(r),
	}
}

// clientIP returns the best-effort caller address: the first hop of
// X-Forwarded-For, then X-Real-IP, then the connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return unknownIP
}
