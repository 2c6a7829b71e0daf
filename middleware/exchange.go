package middleware

import (
	"context"
	"net/http"

	"github.com/erraggy/oasgate/bridge"
	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/message"
)

// Keys of the per-exchange context bag.
const (
	ContextRequestID   = "request_id"
	ContextOperationID = "operation_id"
	ContextBasePath    = "base_path"
)

// RequestIDHeader carries the exchange's request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Exchange is everything an operation handler needs for one request.
type Exchange struct {
	// Request is the validated request snapshot
	Request *message.Request
	// Native is the original request, its body replayable
	Native *http.Request
	// Session runs the next handler
	Session *bridge.Session
	// Operation is the matched declared operation
	Operation *declaration.Operation
	// RequestID identifies the exchange in logs
	RequestID string
}

// OperationHandler serves one declared operation. The result may be a
// *http.Response, a *message.Response, nil (204) or any value serialized as
// the operation's MIME type.
type OperationHandler func(ctx context.Context, ex *Exchange) (any, error)

// CallNext is the default operation handler: it runs the next handler and
// returns its aggregated response.
func CallNext(ctx context.Context, ex *Exchange) (any, error) {
	return ex.Session.CallNext(ctx, ex.Native)
}

// ResponseValidator checks a response before it is written.
type ResponseValidator interface {
	ValidateResponse(ex *Exchange, resp *http.Response) error
}

// ResponseValidatorFunc adapts a function to ResponseValidator.
type ResponseValidatorFunc func(ex *Exchange, resp *http.Response) error

// ValidateResponse calls f(ex, resp).
func (f ResponseValidatorFunc) ValidateResponse(ex *Exchange, resp *http.Response) error {
	return f(ex, resp)
}

// NopResponseValidator accepts every response.
type NopResponseValidator struct{}

// ValidateResponse returns nil.
func (NopResponseValidator) ValidateResponse(*Exchange, *http.Response) error { return nil }
