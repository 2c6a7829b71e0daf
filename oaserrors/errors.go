// Package oaserrors provides structured error types for oasgate.
//
// These error types enable programmatic error handling via errors.Is() and
// errors.As(), allowing callers to distinguish between client problems that
// are rendered as HTTP responses and internal defects that reach the generic
// error handler.
//
// # Error Categories
//
//   - ParseError: YAML/JSON parsing failures of an API declaration
//   - ReferenceError: local $ref resolution failures in an API declaration
//   - ProblemError: request problems carrying an HTTP status, title and detail
//   - MalformedBodyError: a body that cannot be decoded as declared
//   - SerializationError: a response body that cannot be encoded
//   - ProtocolError: a downstream application broke the bridge protocol
//   - UnknownOperationError: a validator lookup for an undeclared operation
//   - ResourceLimitError: resource exhaustion (body size, receive timeout)
//   - ConfigError: invalid configuration or input options
//
// # Usage with errors.As
//
//	if err := reg.Validate(req); err != nil {
//	    var problem *oaserrors.ProblemError
//	    if errors.As(err, &problem) {
//	        http.Error(w, problem.Message(), problem.Status)
//	    }
//	}
package oaserrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for use with errors.Is().
// These allow quick checks without type assertions.
var (
	// ErrParse indicates an API declaration could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrReference indicates a reference resolution failure.
	ErrReference = errors.New("reference error")

	// ErrCircularReference indicates a circular $ref was detected.
	ErrCircularReference = errors.New("circular reference")

	// ErrProblem indicates a client problem that maps to an HTTP response.
	ErrProblem = errors.New("problem")

	// ErrBadRequest indicates a request failed declared parameter validation.
	ErrBadRequest = errors.New("bad request")

	// ErrMalformedBody indicates a body could not be decoded.
	ErrMalformedBody = errors.New("malformed body")

	// ErrSerialization indicates a response body could not be encoded.
	ErrSerialization = errors.New("serialization error")

	// ErrNoResponseReturned indicates the downstream application finished
	// without emitting a start event and without failing.
	ErrNoResponseReturned = errors.New("no response returned")

	// ErrProtocol indicates the downstream application violated the bridge protocol.
	ErrProtocol = errors.New("protocol violation")

	// ErrUnknownOperation indicates a validator lookup for an undeclared operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrResourceLimit indicates a resource limit was exceeded.
	ErrResourceLimit = errors.New("resource limit exceeded")

	// ErrConfig indicates an invalid configuration.
	ErrConfig = errors.New("configuration error")
)

// ParseError represents a failure to parse an API declaration.
// This includes YAML/JSON deserialization errors and structural issues.
type ParseError struct {
	// Path is the file path or source identifier
	Path string
	// Line is the line number where the error occurred (0 if unknown)
	Line int
	// Column is the column number where the error occurred (0 if unknown)
	Column int
	// Message describes the parsing failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
		if e.Column > 0 {
			msg += fmt.Sprintf(", column %d", e.Column)
		}
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ReferenceError represents a failure to resolve a local $ref.
type ReferenceError struct {
	// Ref is the reference string that failed to resolve
	Ref string
	// IsCircular is true if this error is due to a circular reference
	IsCircular bool
	// Message provides additional context about the failure
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ReferenceError) Error() string {
	msg := "reference error"
	if e.IsCircular {
		msg = "circular reference"
	}
	if e.Ref != "" {
		msg += ": " + e.Ref
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ReferenceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
// Matches ErrReference, and also ErrCircularReference when IsCircular is set.
func (e *ReferenceError) Is(target error) bool {
	if target == ErrReference {
		return true
	}
	return target == ErrCircularReference && e.IsCircular
}

// ProblemError is a client problem carrying the HTTP status it maps to.
// A ProblemError with status 400 is a bad request problem, the only error a
// request validator reports for a request that breaks its declared rules.
type ProblemError struct {
	// Status is the HTTP status code of the problem
	Status int
	// Title is a short, human-readable summary
	Title string
	// Detail explains this occurrence of the problem
	Detail string
	// Type is an optional URI identifying the problem type
	Type string
	// Cause is the underlying error, if any
	Cause error
}

// NewBadRequest returns a 400 problem with the standard title.
func NewBadRequest(detail string) *ProblemError {
	return &ProblemError{
		Status: http.StatusBadRequest,
		Title:  http.StatusText(http.StatusBadRequest),
		Detail: detail,
	}
}

// NewProblem returns a problem for status using the status text as title.
func NewProblem(status int, detail string) *ProblemError {
	return &ProblemError{
		Status: status,
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// Message returns the plain text rendering "{title}: {detail}".
func (e *ProblemError) Message() string {
	return e.Title + ": " + e.Detail
}

// Error returns a human-readable error message.
func (e *ProblemError) Error() string {
	msg := fmt.Sprintf("problem %d", e.Status)
	if e.Title != "" {
		msg += " " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ProblemError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
// Matches ErrProblem, and also ErrBadRequest for 400 problems.
func (e *ProblemError) Is(target error) bool {
	if target == ErrProblem {
		return true
	}
	return target == ErrBadRequest && e.Status == http.StatusBadRequest
}

// MalformedBodyError represents a body that cannot be decoded as declared.
type MalformedBodyError struct {
	// MediaType is the media type the body was decoded as
	MediaType string
	// Offset is the byte offset of the syntax error (0 if unknown)
	Offset int64
	// Cause is the underlying decoder error
	Cause error
}

// Error returns a human-readable error message.
func (e *MalformedBodyError) Error() string {
	msg := "malformed body"
	if e.MediaType != "" {
		msg += " (" + e.MediaType + ")"
	}
	if e.Offset > 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *MalformedBodyError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *MalformedBodyError) Is(target error) bool {
	return target == ErrMalformedBody
}

// SerializationError represents a body that cannot be represented in the
// target encoding.
type SerializationError struct {
	// ContentType is the resolved content type of the response
	ContentType string
	// ValueType is the Go type of the body value
	ValueType string
	// Cause is the underlying encoder error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *SerializationError) Error() string {
	msg := "serialization error"
	if e.ValueType != "" {
		msg += " for " + e.ValueType
	}
	if e.ContentType != "" {
		msg += " as " + e.ContentType
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

// ProtocolError represents a downstream application that emitted events out
// of the start → body* order.
type ProtocolError struct {
	// Expected is the event kind the bridge was waiting for
	Expected string
	// Got is the event kind that arrived
	Got string
	// Message provides additional context
	Message string
}

// Error returns a human-readable error message.
func (e *ProtocolError) Error() string {
	msg := "protocol violation"
	if e.Expected != "" || e.Got != "" {
		msg += fmt.Sprintf(": expected %s event, got %s", e.Expected, e.Got)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// UnknownOperationError represents a validator lookup for a (path, method)
// pair the API declaration does not contain.
type UnknownOperationError struct {
	// Path is the path template that was looked up
	Path string
	// Method is the lowercase HTTP method that was looked up
	Method string
}

// Error returns a human-readable error message.
func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s %s", strings.ToUpper(e.Method), e.Path)
}

// Is reports whether target matches this error type.
func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// ResourceLimitError represents exceeding a resource limit.
type ResourceLimitError struct {
	// ResourceType is the kind of resource (e.g., "response body", "receive timeout")
	ResourceType string
	// Limit is the configured limit
	Limit int64
	// Actual is the value that exceeded the limit (0 if unknown)
	Actual int64
	// Message provides additional context
	Message string
}

// Error returns a human-readable error message.
func (e *ResourceLimitError) Error() string {
	msg := "resource limit exceeded"
	if e.ResourceType != "" {
		msg += ": " + e.ResourceType
	}
	if e.Actual > 0 {
		msg += fmt.Sprintf(" (%d exceeds limit of %d)", e.Actual, e.Limit)
	} else if e.Limit > 0 {
		msg += fmt.Sprintf(" (limit: %d)", e.Limit)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is reports whether target matches this error type.
func (e *ResourceLimitError) Is(target error) bool {
	return target == ErrResourceLimit
}

// ConfigError represents an invalid configuration or input.
// This includes invalid options, missing required inputs, and conflicting settings.
type ConfigError struct {
	// Option is the name of the problematic configuration option
	Option string
	// Value is the invalid value that was provided (may be nil)
	Value any
	// Message describes the configuration error
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Option != "" {
		msg += " for " + e.Option
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
