package message

import (
	"encoding/json"
	"fmt"

	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/oaserrors"
)

// Body is the payload of a Response: either Serialized or Unserialized.
type Body interface {
	isBody()
}

// Serialized is a body whose bytes are already encoded.
type Serialized struct {
	// ContentType is the content type of Data, "" if unknown
	ContentType string
	// Data is the encoded body
	Data []byte
}

// Unserialized is a Go value that still needs encoding.
type Unserialized struct {
	// Value is the data to encode
	Value any
	// MimeType hints the encoding, "" to let the serializer infer it
	MimeType string
}

func (Serialized) isBody()   {}
func (Unserialized) isBody() {}

// Response is a framework-neutral response.
type Response struct {
	// StatusCode is the HTTP status (100-599)
	StatusCode int
	// MimeType is the explicit MIME type, "" when unset
	MimeType string
	// ContentType takes precedence over MimeType for the outgoing header, "" when unset
	ContentType string
	// Headers is the ordered header list
	Headers Headers
	// Body is the payload, nil for an empty body
	Body Body
}

// CheckStatus returns an error when code lies outside 100-599.
func CheckStatus(code int) error {
	if !httputil.IsValidStatus(code) {
		return &oaserrors.ConfigError{
			Option:  "status",
			Value:   code,
			Message: fmt.Sprintf("must be between %d and %d", httputil.MinStatusCode, httputil.MaxStatusCode),
		}
	}
	return nil
}

// NewResponse builds a Response after checking the status range.
func NewResponse(status int, body Body) (*Response, error) {
	if err := CheckStatus(status); err != nil {
		return nil, err
	}
	return &Response{StatusCode: status, Body: body}, nil
}

// SerializeBody encodes the body and returns the bytes together with the
// content type to emit. The content type resolves as ContentType, then
// MimeType, then the type the serializer inferred from the body. An empty
// body with no explicit type yields no content type.
func (r *Response) SerializeBody() ([]byte, string, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, r.resolveContentType(""), nil
	case Serialized:
		return b.Data, r.resolveContentType(b.ContentType), nil
	case Unserialized:
		inferred := b.MimeType
		if inferred == "" {
			inferred = inferMimeType(b.Value)
		}
		contentType := r.resolveContentType(inferred)
		data, err := encode(b.Value, contentType)
		if err != nil {
			return nil, contentType, err
		}
		return data, contentType, nil
	default:
		return nil, "", &oaserrors.SerializationError{ValueType: fmt.Sprintf("%T", r.Body)}
	}
}

func (r *Response) resolveContentType(inferred string) string {
	if r.ContentType != "" {
		return r.ContentType
	}
	if r.MimeType != "" {
		return r.MimeType
	}
	return inferred
}

// inferMimeType picks a MIME type from the shape of the value.
func inferMimeType(v any) string {
	switch v.(type) {
	case json.RawMessage:
		return httputil.MediaTypeJSON
	case string:
		return httputil.MediaTypeText
	case []byte:
		return httputil.MediaTypeOctetStream
	default:
		return httputil.MediaTypeJSON
	}
}

func encode(v any, contentType string) ([]byte, error) {
	if httputil.IsJSON(contentType) {
		if raw, ok := v.(json.RawMessage); ok {
			return raw, nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &oaserrors.SerializationError{
				ContentType: contentType,
				ValueType:   fmt.Sprintf("%T", v),
				Cause:       err,
			}
		}
		return data, nil
	}

	switch d := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return d, nil
	case string:
		return []byte(d), nil
	case fmt.Stringer:
		return []byte(d.String()), nil
	default:
		return nil, &oaserrors.SerializationError{
			ContentType: contentType,
			ValueType:   fmt.Sprintf("%T", v),
		}
	}
}
