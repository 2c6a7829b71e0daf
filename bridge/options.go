package bridge

import (
	"time"

	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/oaserrors"
)

// DefaultMaxBodySize is the default cap on an aggregated response body.
const DefaultMaxBodySize int64 = 10 << 20 // 10 MiB

// Option is a functional option for Open.
type Option func(*config) error

type config struct {
	bufferSize     int
	maxBodySize    int64
	receiveTimeout time.Duration
	logger         logging.Logger
}

func defaultConfig() *config {
	return &config{
		bufferSize:  1,
		maxBodySize: DefaultMaxBodySize,
		logger:      logging.NopLogger{},
	}
}

func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// CheckOptions reports the first invalid option without opening a session.
func CheckOptions(opts ...Option) error {
	_, err := applyOptions(opts)
	return err
}

// WithBufferSize sets the capacity of the event channel between the
// downstream application and the caller. Must be at least 1. Default: 1.
func WithBufferSize(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return &oaserrors.ConfigError{Option: "buffer size", Value: n, Message: "must be at least 1"}
		}
		c.bufferSize = n
		return nil
	}
}

// WithMaxBodySize caps the number of body bytes a response may carry.
// Exceeding it fails the exchange with *oaserrors.ResourceLimitError.
// Zero means unlimited. Default: 10 MiB.
func WithMaxBodySize(n int64) Option {
	return func(c *config) error {
		if n < 0 {
			return &oaserrors.ConfigError{Option: "max body size", Value: n, Message: "cannot be negative"}
		}
		c.maxBodySize = n
		return nil
	}
}

// WithReceiveTimeout bounds the wait for each event from the downstream
// application. Zero means no timeout, the default.
func WithReceiveTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return &oaserrors.ConfigError{Option: "receive timeout", Value: d, Message: "cannot be negative"}
		}
		c.receiveTimeout = d
		return nil
	}
}

// WithLogger sets the logger for session events.
func WithLogger(l logging.Logger) Option {
	return func(c *config) error {
		c.logger = logging.OrNop(l)
		return nil
	}
}
