package middleware

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erraggy/oasgate/bridge"
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/oaserrors"
	"github.com/erraggy/oasgate/registry"
)

// Option is a functional option for New.
type Option func(*config) error

type config struct {
	logger            logging.Logger
	errorHandler      ErrorHandler
	registerer        prometheus.Registerer
	strictRouting     bool
	maxRequestBody    int64
	bridgeOpts        []bridge.Option
	registryOpts      []registry.Option
	responseValidator ResponseValidator
}

func defaultConfig() *config {
	return &config{
		logger:            logging.NopLogger{},
		responseValidator: NopResponseValidator{},
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = ProblemHandler(cfg.logger)
	}
	if err := bridge.CheckOptions(cfg.bridgeOpts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithLogger sets the logger for middleware, registry and bridge events.
func WithLogger(l logging.Logger) Option {
	return func(c *config) error {
		c.logger = logging.OrNop(l)
		return nil
	}
}

// WithErrorHandler replaces the default JSON problem handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) error {
		if h == nil {
			return &oaserrors.ConfigError{Option: "error handler", Message: "error handler cannot be nil"}
		}
		c.errorHandler = h
		return nil
	}
}

// WithMetrics registers the middleware collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) error {
		c.registerer = reg
		return nil
	}
}

// WithStrictRouting answers requests that match no declared path with a 404
// problem instead of passing them to the next handler unvalidated.
// Default is false.
func WithStrictRouting(strict bool) Option {
	return func(c *config) error {
		c.strictRouting = strict
		return nil
	}
}

// WithMaxRequestBodySize caps request bodies read for validation. Larger
// bodies fail with a 413 problem. Zero means unlimited, the default.
func WithMaxRequestBodySize(n int64) Option {
	return func(c *config) error {
		if n < 0 {
			return &oaserrors.ConfigError{Option: "max request body size", Value: n, Message: "cannot be negative"}
		}
		c.maxRequestBody = n
		return nil
	}
}

// WithBridgeOptions sets the options of every call-next session, such as
// bridge.WithReceiveTimeout or bridge.WithMaxBodySize.
func WithBridgeOptions(opts ...bridge.Option) Option {
	return func(c *config) error {
		c.bridgeOpts = append(c.bridgeOpts, opts...)
		return nil
	}
}

// WithRegistryOptions sets options used to build the registry of every API,
// such as registry.WithStrictValidation.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(c *config) error {
		c.registryOpts = append(c.registryOpts, opts...)
		return nil
	}
}

// WithResponseValidator sets the validator run on responses of APIs added
// with WithResponseValidation(true).
func WithResponseValidator(v ResponseValidator) Option {
	return func(c *config) error {
		if v == nil {
			return &oaserrors.ConfigError{Option: "response validator", Message: "response validator cannot be nil"}
		}
		c.responseValidator = v
		return nil
	}
}

// APIOption is a functional option for AddAPI.
type APIOption func(*apiConfig) error

type apiConfig struct {
	basePath          *string
	validateResponses bool
	handlers          map[string]OperationHandler
}

// WithBasePath mounts the API at path instead of the base path declared in
// the document. Use "/" or "" to mount at the root.
func WithBasePath(path string) APIOption {
	return func(c *apiConfig) error {
		path = strings.TrimRight(path, "/")
		if path != "" && !strings.HasPrefix(path, "/") {
			return &oaserrors.ConfigError{Option: "base path", Value: path, Message: "must start with /"}
		}
		c.basePath = &path
		return nil
	}
}

// WithResponseValidation runs the middleware's ResponseValidator on every
// response of this API. Default is false.
func WithResponseValidation(enabled bool) APIOption {
	return func(c *apiConfig) error {
		c.validateResponses = enabled
		return nil
	}
}

// WithOperationHandler serves the operation with the given operationId with
// h instead of calling the next handler.
func WithOperationHandler(operationID string, h OperationHandler) APIOption {
	return func(c *apiConfig) error {
		if operationID == "" {
			return &oaserrors.ConfigError{Option: "operation handler", Message: "operationId cannot be empty"}
		}
		if h == nil {
			return &oaserrors.ConfigError{Option: "operation handler", Value: operationID, Message: "handler cannot be nil"}
		}
		if c.handlers == nil {
			c.handlers = make(map[string]OperationHandler)
		}
		c.handlers[operationID] = h
		return nil
	}
}
