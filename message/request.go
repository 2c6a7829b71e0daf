package message

import (
	"encoding/json"
	"errors"
	"net/url"
	"sync"

	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/oaserrors"
)

// Decoder parses a raw body into a Go value.
type Decoder func(body []byte) (any, error)

// RequestParts holds the fields a framework adapter collects for NewRequest.
type RequestParts struct {
	// URL is the target URL of the exchange
	URL *url.URL
	// Method is the HTTP method as received (e.g., "GET")
	Method string
	// Route is the matched path template (e.g., "/pets/{petId}"), if any
	Route string
	// PathParams are the values extracted from the path template
	PathParams map[string]string
	// Query is the query string in wire order, repeated keys preserved
	Query []Pair
	// Headers is the header list in wire order
	Headers Headers
	// Body is the fully materialized request body
	Body []byte
	// Context is an opaque per-exchange bag owned by the caller
	Context map[string]any
	// Decoder replaces the default JSON decoder when set
	Decoder Decoder
}

// Request is an immutable snapshot of an inbound exchange.
type Request struct {
	url        *url.URL
	method     string
	route      string
	pathParams map[string]string
	query      []Pair
	headers    Headers
	body       []byte
	context    map[string]any
	decoder    Decoder

	decodeOnce sync.Once
	decoded    any
	decodeErr  error
}

// NewRequest builds a Request from parts. Maps and slices are copied so later
// changes by the caller do not leak into the snapshot; Context is kept by
// reference because it belongs to the caller.
func NewRequest(parts RequestParts) *Request {
	r := &Request{
		url:        parts.URL,
		method:     parts.Method,
		route:      parts.Route,
		pathParams: make(map[string]string, len(parts.PathParams)),
		query:      append([]Pair(nil), parts.Query...),
		headers:    append(Headers(nil), parts.Headers...),
		body:       parts.Body,
		context:    parts.Context,
		decoder:    parts.Decoder,
	}
	if r.url == nil {
		r.url = &url.URL{Path: "/"}
	}
	for k, v := range parts.PathParams {
		r.pathParams[k] = v
	}
	if r.context == nil {
		r.context = map[string]any{}
	}
	if r.decoder == nil {
		r.decoder = decodeJSON
	}
	return r
}

// URL returns the target URL.
func (r *Request) URL() *url.URL { return r.url }

// Method returns the HTTP method as received.
func (r *Request) Method() string { return r.method }

// Path returns the request path of the target URL.
func (r *Request) Path() string { return r.url.Path }

// Route returns the matched path template, or "" when no router matched.
func (r *Request) Route() string { return r.route }

// PathParam returns a path parameter value and whether it was present.
func (r *Request) PathParam(name string) (string, bool) {
	v, ok := r.pathParams[name]
	return v, ok
}

// PathParams returns a copy of the path parameters.
func (r *Request) PathParams() map[string]string {
	out := make(map[string]string, len(r.pathParams))
	for k, v := range r.pathParams {
		out[k] = v
	}
	return out
}

// Query returns a copy of the query parameters in wire order.
func (r *Request) Query() []Pair {
	return append([]Pair(nil), r.query...)
}

// QueryValues returns every value for a query parameter in wire order.
func (r *Request) QueryValues(name string) []string {
	var values []string
	for _, p := range r.query {
		if p.Key == name {
			values = append(values, p.Value)
		}
	}
	return values
}

// HasQuery reports whether the query string contains name.
func (r *Request) HasQuery(name string) bool {
	for _, p := range r.query {
		if p.Key == name {
			return true
		}
	}
	return false
}

// Headers returns a copy of the header list.
func (r *Request) Headers() Headers {
	return append(Headers(nil), r.headers...)
}

// Header returns the first value of a header, compared case-insensitively.
func (r *Request) Header(name string) string {
	return r.headers.Get(name)
}

// Body returns the raw body bytes. The slice must not be modified.
func (r *Request) Body() []byte { return r.body }

// Context returns the opaque per-exchange bag passed in by the caller.
func (r *Request) Context() map[string]any { return r.context }

// Files returns the uploaded files of the request. Uploads are not parsed,
// so the map is always empty and never nil.
func (r *Request) Files() map[string]any { return map[string]any{} }

// DecodeJSON parses the body as JSON. The decoder runs at most once; later
// calls return the memoized value and error. An empty body is not valid JSON
// and fails like any other malformed body.
func (r *Request) DecodeJSON() (any, error) {
	r.decodeOnce.Do(func() {
		r.decoded, r.decodeErr = r.decoder(r.body)
		if r.decodeErr != nil && !errors.Is(r.decodeErr, oaserrors.ErrMalformedBody) {
			r.decodeErr = &oaserrors.MalformedBodyError{
				MediaType: httputil.MediaTypeJSON,
				Cause:     r.decodeErr,
			}
		}
	})
	return r.decoded, r.decodeErr
}

func decodeJSON(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		malformed := &oaserrors.MalformedBodyError{MediaType: httputil.MediaTypeJSON, Cause: err}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			malformed.Offset = syntaxErr.Offset
		}
		return nil, malformed
	}
	return v, nil
}
