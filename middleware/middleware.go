package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/erraggy/oasgate/adapter"
	"github.com/erraggy/oasgate/bridge"
	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/oaserrors"
	"github.com/erraggy/oasgate/registry"
)

// maxRequestIDLength bounds a client supplied request id.
const maxRequestIDLength = 128

// Middleware validates exchanges against mounted API declarations before
// handing them to the next handler.
type Middleware struct {
	next    http.Handler
	cfg     *config
	logger  logging.Logger
	adapter *adapter.HTTP
	metrics *metrics

	mu   sync.RWMutex
	apis []*API
}

// API is one declaration mounted on a Middleware.
type API struct {
	decl              *declaration.Declaration
	basePath          string
	registry          *registry.Registry
	router            *router
	validateResponses bool
}

// BasePath returns the path the API is mounted at.
func (a *API) BasePath() string { return a.basePath }

// Declaration returns the mounted declaration.
func (a *API) Declaration() *declaration.Declaration { return a.decl }

// Registry returns the API's validator registry.
func (a *API) Registry() *registry.Registry { return a.registry }

// Routes lists the mounted operations in match order.
func (a *API) Routes() []Route {
	routes := make([]Route, len(a.router.order))
	for i, rt := range a.router.order {
		routes[i] = rt.Route
	}
	return routes
}

// New wraps next. Requests matching no mounted API reach next unvalidated
// unless WithStrictRouting is set.
func New(next http.Handler, opts ...Option) (*Middleware, error) {
	if next == nil {
		return nil, &oaserrors.ConfigError{Option: "next", Message: "next handler cannot be nil"}
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, err
	}
	return &Middleware{
		next:    next,
		cfg:     cfg,
		logger:  cfg.logger,
		adapter: &adapter.HTTP{MaxBodySize: cfg.maxRequestBody},
		metrics: m,
	}, nil
}

// AddAPI mounts decl at its declared base path and builds its validator
// registry. APIs with longer base paths are matched first.
func (m *Middleware) AddAPI(decl *declaration.Declaration, opts ...APIOption) (*API, error) {
	if decl == nil {
		return nil, &oaserrors.ConfigError{Option: "declaration", Message: "declaration cannot be nil"}
	}
	acfg := &apiConfig{}
	for _, opt := range opts {
		if err := opt(acfg); err != nil {
			return nil, err
		}
	}

	basePath := decl.BasePath
	if acfg.basePath != nil {
		basePath = *acfg.basePath
	}

	for id := range acfg.handlers {
		if !hasOperationID(decl, id) {
			return nil, &oaserrors.ConfigError{Option: "operation handler", Value: id, Message: "no operation with this operationId"}
		}
	}

	regOpts := append([]registry.Option{registry.WithLogger(m.logger)}, m.cfg.registryOpts...)
	reg, err := registry.Build(decl, regOpts...)
	if err != nil {
		return nil, err
	}
	rt, err := newRouter(decl, basePath, acfg.handlers)
	if err != nil {
		return nil, err
	}

	api := &API{
		decl:              decl,
		basePath:          basePath,
		registry:          reg,
		router:            rt,
		validateResponses: acfg.validateResponses,
	}

	m.mu.Lock()
	m.apis = append(m.apis, api)
	sort.SliceStable(m.apis, func(i, j int) bool {
		return len(m.apis[i].basePath) > len(m.apis[j].basePath)
	})
	m.mu.Unlock()

	m.logger.Info("api mounted",
		"source", decl.Source(),
		"title", decl.Title,
		"base_path", basePath,
		"operations", reg.Len(),
		"validate_responses", acfg.validateResponses,
	)
	return api, nil
}

// APIs returns the mounted APIs in match order.
func (m *Middleware) APIs() []*API {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*API(nil), m.apis...)
}

// ServeHTTP implements http.Handler.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isUpgrade(r) {
		m.metrics.skip(OutcomePassthrough)
		m.next.ServeHTTP(w, r)
		return
	}

	api, rt, vars, status := m.match(r)
	switch status {
	case matchNone:
		if m.cfg.strictRouting {
			m.metrics.skip(OutcomeUnmatched)
			m.cfg.errorHandler(w, r, oaserrors.NewProblem(http.StatusNotFound,
				fmt.Sprintf("no declared operation matches %s %s", r.Method, r.URL.Path)))
			return
		}
		m.metrics.skip(OutcomePassthrough)
		m.next.ServeHTTP(w, r)
		return
	case matchMethod:
		m.metrics.skip(OutcomeUnmatched)
		m.cfg.errorHandler(w, r, oaserrors.NewProblem(http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s is not declared for %s", r.Method, r.URL.Path)))
		return
	}

	start := time.Now()
	m.metrics.begin()
	outcome := m.serve(w, r, api, rt, vars)
	m.metrics.observe(api.basePath, rt.label(), outcome, time.Since(start))
}

// match finds the operation across mounted APIs. A method mismatch is only
// reported when no API matches the request outright.
func (m *Middleware) match(r *http.Request) (*API, *route, map[string]string, matchStatus) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := matchNone
	for _, api := range m.apis {
		rt, vars, status := api.router.match(r)
		switch status {
		case matchFound:
			return api, rt, vars, matchFound
		case matchMethod:
			result = matchMethod
		}
	}
	return nil, nil, nil, result
}

// serve runs one validated exchange and returns its outcome.
func (m *Middleware) serve(w http.ResponseWriter, r *http.Request, api *API, rt *route, vars map[string]string) string {
	ctx := r.Context()
	id := requestID(r)
	r.Header.Set(RequestIDHeader, id)
	w.Header().Set(RequestIDHeader, id)

	logger := m.logger.With("request_id", id, "operation", rt.label())
	life := newLifecycle(logger)

	scope := map[string]any{
		ContextRequestID:   id,
		ContextOperationID: rt.OperationID,
		ContextBasePath:    api.basePath,
	}
	req, err := m.adapter.ToRequest(r, rt.Template, vars, scope)
	if err != nil {
		return m.abort(ctx, w, r, life, err)
	}

	if err := api.registry.Validate(req); err != nil {
		var problem *oaserrors.ProblemError
		if !errors.As(err, &problem) {
			return m.abort(ctx, w, r, life, err)
		}
		life.fail(ctx, err)
		logger.Debug("request rejected", "status", problem.Status, "detail", problem.Detail)
		writeTextProblem(w, problem)
		return OutcomeRejected
	}
	if err := life.advance(ctx, eventValidateRequest); err != nil {
		return m.abort(ctx, w, r, life, err)
	}

	bridgeOpts := append(append([]bridge.Option(nil), m.cfg.bridgeOpts...), bridge.WithLogger(logger))
	session, err := bridge.Open(ctx, bridge.Handler(m.next), bridgeOpts...)
	if err != nil {
		return m.abort(ctx, w, r, life, err)
	}
	defer func() { _ = session.Close() }()

	ex := &Exchange{
		Request:   req,
		Native:    r,
		Session:   session,
		Operation: rt.operation,
		RequestID: id,
	}
	if err := life.advance(ctx, eventDispatch); err != nil {
		return m.abort(ctx, w, r, life, err)
	}
	result, err := rt.handler(ctx, ex)
	if err != nil {
		return m.abort(ctx, w, r, life, err)
	}
	resp, err := m.adapter.Respond(result, rt.operation.MimeType)
	if err != nil {
		return m.abort(ctx, w, r, life, err)
	}

	if api.validateResponses {
		if err := m.cfg.responseValidator.ValidateResponse(ex, resp); err != nil {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			return m.abort(ctx, w, r, life, err)
		}
		adapter.RewindBody(resp)
	}
	if err := life.advance(ctx, eventValidateResponse); err != nil {
		return m.abort(ctx, w, r, life, err)
	}

	if err := adapter.WriteResponse(w, resp); err != nil {
		// The status line is already out; nothing left to report to the client.
		logger.Warn("writing response failed", "error", err)
		life.fail(ctx, err)
		return OutcomeError
	}
	if err := life.advance(ctx, eventComplete); err != nil {
		logger.Warn("exchange lifecycle", "error", err)
	}
	return OutcomeCompleted
}

func (m *Middleware) abort(ctx context.Context, w http.ResponseWriter, r *http.Request, life *lifecycle, err error) string {
	life.fail(ctx, err)
	m.cfg.errorHandler(w, r, err)
	return OutcomeError
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequestIDHeader)); id != "" && len(id) <= maxRequestIDLength {
		return id
	}
	return uuid.NewString()
}

func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

func hasOperationID(decl *declaration.Declaration, id string) bool {
	for _, op := range decl.Operations() {
		if op.OperationID == id {
			return true
		}
	}
	return false
}
