package registry

import (
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/oaserrors"
)

// Option is a functional option for Build.
type Option func(*config) error

type config struct {
	failFast bool
	strict   bool
	logger   logging.Logger
	extra    map[OperationKey]Validator
}

func defaultConfig() *config {
	return &config{logger: logging.NopLogger{}}
}

// WithFailFast makes lookups of undeclared operations fail with
// *oaserrors.UnknownOperationError instead of allowing the request.
// Default is false.
func WithFailFast(failFast bool) Option {
	return func(c *config) error {
		c.failFast = failFast
		return nil
	}
}

// WithStrictValidation rejects requests carrying undeclared query parameters.
// Default is false.
func WithStrictValidation(strict bool) Option {
	return func(c *config) error {
		c.strict = strict
		return nil
	}
}

// WithLogger sets the logger for registry events.
func WithLogger(l logging.Logger) Option {
	return func(c *config) error {
		c.logger = logging.OrNop(l)
		return nil
	}
}

// WithValidator adds a validator that runs after the parameter validator of
// the operation at path and method.
func WithValidator(path, method string, v Validator) Option {
	return func(c *config) error {
		if v == nil {
			return &oaserrors.ConfigError{Option: "validator", Message: "validator cannot be nil"}
		}
		if c.extra == nil {
			c.extra = make(map[OperationKey]Validator)
		}
		c.extra[newOperationKey(path, method)] = v
		return nil
	}
}
