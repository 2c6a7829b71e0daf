// Package oaserrors provides structured error types for the oasgate middleware.
//
// Import path: github.com/erraggy/oasgate/oaserrors
//
// This package enables programmatic error handling via [errors.Is] and [errors.As],
// allowing callers to distinguish problems that become HTTP responses from
// defects that reach the generic error handler.
//
// # Error Types
//
//   - [ParseError]: YAML/JSON parsing failures of an API declaration
//   - [ReferenceError]: local $ref resolution failures, circular references
//   - [ProblemError]: client problems with an HTTP status, title and detail
//   - [MalformedBodyError]: bodies that cannot be decoded
//   - [SerializationError]: response bodies that cannot be encoded
//   - [ProtocolError]: downstream applications breaking the start → body order
//   - [UnknownOperationError]: validator lookups for undeclared operations
//   - [ResourceLimitError]: body size and receive timeout limits
//   - [ConfigError]: invalid configuration or input options
//
// # Sentinel Errors
//
//   - [ErrParse]: Matches any [ParseError]
//   - [ErrReference]: Matches any [ReferenceError]
//   - [ErrCircularReference]: Matches [ReferenceError] with IsCircular=true
//   - [ErrProblem]: Matches any [ProblemError]
//   - [ErrBadRequest]: Matches [ProblemError] with status 400
//   - [ErrMalformedBody]: Matches any [MalformedBodyError]
//   - [ErrSerialization]: Matches any [SerializationError]
//   - [ErrNoResponseReturned]: returned as-is by the bridge
//   - [ErrProtocol]: Matches any [ProtocolError]
//   - [ErrUnknownOperation]: Matches any [UnknownOperationError]
//   - [ErrResourceLimit]: Matches any [ResourceLimitError]
//   - [ErrConfig]: Matches any [ConfigError]
//
// # Usage Examples
//
// Render a validation problem:
//
//	if err := reg.Validate(req); err != nil {
//	    var problem *oaserrors.ProblemError
//	    if errors.As(err, &problem) {
//	        http.Error(w, problem.Message(), problem.Status)
//	        return
//	    }
//	}
//
// Distinguish downstream failures:
//
//	resp, err := session.CallNext(ctx, r)
//	if errors.Is(err, oaserrors.ErrNoResponseReturned) {
//	    // The downstream handler never started a response
//	}
package oaserrors
