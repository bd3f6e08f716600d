package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/preschool/internal/pkg/config"
	"github.com/shandysiswandi/preschool/internal/pkg/goerror"
	"github.com/shandysiswandi/preschool/internal/pkg/instrument"
	"github.com/shandysiswandi/preschool/internal/pkg/jwt"
	"github.com/shandysiswandi/preschool/internal/pkg/uid"
	"github.com/shandysiswandi/preschool/internal/pkg/validator"
)

type errorResponse struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error,omitempty"`
}

type successResponse struct {
	Message string         `json:"message"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Handler is the application-style handler used by this router.
//
// It returns a response payload (that will be JSON encoded) or an error.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	Config config.Config
	// UUID generates request correlation IDs.
	UUID uid.StringID
	// JWT verifies bearer tokens on routes not registered with Public.
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
}

// RouteOption customizes a single endpoint at registration.
type RouteOption func(*route)

type route struct {
	public bool
	mws    []Middleware
}

// Public skips bearer authentication for the endpoint.
func Public() RouteOption {
	return func(rt *route) { rt.public = true }
}

// With appends endpoint-specific middleware after the router's own chain.
func With(mws ...Middleware) RouteOption {
	return func(rt *route) { rt.mws = append(rt.mws, mws...) }
}

// Router is an http.Handler that wraps httprouter and a middleware chain.
type Router struct {
	hr   *httprouter.Router
	base []Middleware
	auth Middleware
}

// NewRouter builds the application router. Every endpoint gets recovery,
// client IP, correlation id, observability and maintenance handling; bearer
// authentication is added unless the endpoint is registered with Public.
func NewRouter(cfg Config) *Router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{"message": "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{"message": "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	hr.GET("/", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, map[string]string{"message": "Welcome to Preschool API"}, http.StatusOK)
	})

	return &Router{
		hr: hr,
		base: []Middleware{
			middlewareRecoverer,
			middlewareIP,
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareMaintenance(cfg.Config),
		},
		auth: middlewareAuthentication(cfg.JWT),
	}
}

// GET registers a GET endpoint.
func (r *Router) GET(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodGet, path, h, opts)
}

// POST registers a POST endpoint.
func (r *Router) POST(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodPost, path, h, opts)
}

func (r *Router) endpoint(method, path string, h Handler, opts []RouteOption) {
	var rt route
	for _, opt := range opts {
		opt(&rt)
	}

	mws := append([]Middleware{}, r.base...)
	if !rt.public {
		mws = append(mws, r.auth)
	}
	mws = append(mws, rt.mws...)

	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if setter, ok := w.(interface{ SetError(error) }); ok {
				setter.SetError(err)
			}
			writeError(req.Context(), w, err)
			return
		}
		writeSuccess(w, resp)
	}), mws...))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}

// writeError maps goerror kinds to status codes. Anything else is a 500 and is
// logged since the handler did not classify it.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	gerr, ok := goerror.As(err)
	if !ok {
		slog.ErrorContext(ctx, "unclassified handler error", "error", err)
		writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Message: gerr.Msg()}

	var verr validator.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Error = verr.Values()
	case len(gerr.Fields()) > 0:
		resp.Error = gerr.Fields()
	}

	writeJSON(w, resp, gerr.StatusCode())
}

// writeSuccess wraps resp in the success envelope. resp may override the
// status with StatusCode(), the message with Message() and add Meta().
func writeSuccess(w http.ResponseWriter, resp any) {
	code := http.StatusOK
	if sc, ok := resp.(interface{ StatusCode() int }); ok {
		code = sc.StatusCode()
	}
	if resp == nil || code == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body := successResponse{Message: "request has been successfully", Data: resp}
	if m, ok := resp.(interface{ Message() string }); ok {
		body.Message = m.Message()
	}
	if m, ok := resp.(interface{ Meta() map[string]any }); ok {
		body.Meta = m.Meta()
	}

	writeJSON(w, body, code)
}

func writeJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
