// Package adapter converts between net/http values and the framework-neutral
// message model.
//
// It is the only package that knows about the transport: every other
// component works on [message.Request] and [message.Response]. The adapter
// is a thin translation layer and returns transport errors unchanged.
//
// The four conversions are:
//
//   - [HTTP.ToRequest]: *http.Request → *message.Request (reads the body once)
//   - [HTTP.ToResponse]: *http.Response → *message.Response
//   - [HTTP.IsNative]: is a value already a *http.Response?
//   - [HTTP.FromResponse]: *message.Response → *http.Response
package adapter

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/message"
)

// HTTP converts between net/http and the message model.
type HTTP struct {
	// MaxBodySize caps the request body read by ToRequest.
	// Zero means no limit.
	MaxBodySize int64

	// Decoder replaces the default JSON decoder of built requests.
	Decoder message.Decoder
}

// New returns an HTTP adapter with no body limit and the default decoder.
func New() *HTTP {
	return &HTTP{}
}

// ToRequest snapshots r. The body is read to the end exactly once and r.Body
// is replaced with a replay reader over the same bytes, so a downstream
// handler reading r.Body sees the original payload.
//
// route and pathParams come from the router; scope is the opaque
// per-exchange bag and is passed through untouched.
func (a *HTTP) ToRequest(r *http.Request, route string, pathParams map[string]string, scope map[string]any) (*message.Request, error) {
	body, err := a.readBody(r)
	if err != nil {
		return nil, err
	}

	query, err := ParseQuery(r.URL.RawQuery)
	if err != nil {
		return nil, err
	}

	return message.NewRequest(message.RequestParts{
		URL:        r.URL,
		Method:     r.Method,
		Route:      route,
		PathParams: pathParams,
		Query:      query,
		Headers:    message.HeadersFromHTTP(r.Header),
		Body:       body,
		Context:    scope,
		Decoder:    a.Decoder,
	}), nil
}

func (a *HTTP) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	var src io.ReadCloser = r.Body
	if a.MaxBodySize > 0 {
		src = http.MaxBytesReader(nil, r.Body, a.MaxBodySize)
	}
	body, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	r.ContentLength = int64(len(body))
	return body, nil
}

// ParseQuery splits a raw query string into pairs, keeping wire order and
// repeated keys. Like url.ParseQuery it keeps going after a malformed pair
// and returns the first error.
func ParseQuery(raw string) ([]message.Pair, error) {
	var (
		pairs    []message.Pair
		firstErr error
	)
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pairs = append(pairs, message.Pair{Key: k, Value: v})
	}
	return pairs, firstErr
}

// ToResponse converts a native response. The body is only copied when it is
// already buffered in memory (see BufferedBody); a live stream is left for
// the caller to consume. mimeType is carried over as the response MIME type.
func (a *HTTP) ToResponse(resp *http.Response, mimeType string) (*message.Response, error) {
	contentType := resp.Header.Get("Content-Type")
	out := &message.Response{
		StatusCode:  resp.StatusCode,
		MimeType:    mimeType,
		ContentType: contentType,
		Headers:     message.HeadersFromHTTP(resp.Header).Without("Content-Type"),
	}
	if buffered, ok := resp.Body.(*BufferedBody); ok {
		out.Body = message.Serialized{ContentType: contentType, Data: buffered.Bytes()}
	}
	return out, nil
}

// IsNative reports whether v is already a native response that needs no
// serialization.
func (a *HTTP) IsNative(v any) bool {
	_, ok := v.(*http.Response)
	return ok
}

// FromResponse serializes resp and builds a native response with exactly one
// Content-Type header. A Content-Type entry in resp.Headers counts as the
// explicit content type when neither ContentType nor MimeType is set.
func (a *HTTP) FromResponse(resp *message.Response) (*http.Response, error) {
	if err := message.CheckStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	if resp.ContentType == "" && resp.MimeType == "" && resp.Headers.Has("Content-Type") {
		explicit := *resp
		explicit.ContentType = resp.Headers.Get("Content-Type")
		resp = &explicit
	}
	data, contentType, err := resp.SerializeBody()
	if err != nil {
		return nil, err
	}

	header := resp.Headers.Without("Content-Type").HTTP()
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return NewResponse(resp.StatusCode, header, data), nil
}

// Respond turns a handler result into a native response. Native responses
// are returned as they are, message responses are converted, and any other
// value becomes the body of a 200 response (204 when v is nil) hinted with
// mimeType.
func (a *HTTP) Respond(v any, mimeType string) (*http.Response, error) {
	if a.IsNative(v) {
		return v.(*http.Response), nil
	}
	if resp, ok := v.(*message.Response); ok {
		return a.FromResponse(resp)
	}
	if v == nil {
		return a.FromResponse(&message.Response{StatusCode: http.StatusNoContent})
	}
	return a.FromResponse(&message.Response{
		StatusCode: http.StatusOK,
		MimeType:   mimeType,
		Body:       message.Unserialized{Value: v},
	})
}

// NewResponse builds a native response around an in-memory body.
func NewResponse(status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          NewBufferedBody(body),
		ContentLength: int64(len(body)),
	}
}

// WriteResponse copies a native response to w and closes its body. Header
// keys present in resp replace any value already set on w.
func WriteResponse(w http.ResponseWriter, resp *http.Response) error {
	if resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}

	dst := w.Header()
	for k, values := range resp.Header {
		dst.Del(k)
		for _, v := range values {
			dst.Add(k, v)
		}
	}
	status := resp.StatusCode
	if !httputil.IsValidStatus(status) {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body == nil {
		return nil
	}
	_, err := io.Copy(w, resp.Body)
	return err
}

// BufferedBody is a response body held entirely in memory.
type BufferedBody struct {
	*bytes.Reader
	data []byte
}

// NewBufferedBody wraps data as a response body.
func NewBufferedBody(data []byte) *BufferedBody {
	return &BufferedBody{Reader: bytes.NewReader(data), data: data}
}

// Bytes returns the complete body, independent of how much has been read.
func (b *BufferedBody) Bytes() []byte { return b.data }

// Close implements io.Closer.
func (b *BufferedBody) Close() error { return nil }

// RewindBody gives resp a fresh reader over its buffered body so it can be
// read again from the start. Other bodies are left alone.
func RewindBody(resp *http.Response) {
	if b, ok := resp.Body.(*BufferedBody); ok {
		resp.Body = NewBufferedBody(b.Bytes())
	}
}
