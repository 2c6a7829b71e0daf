// Package httputil provides HTTP-related constants and media type helpers.
package httputil

import (
	"mime"
	"strings"
)

// HTTP Status Code Constants
const (
	MinStatusCode = 100 // Minimum valid HTTP status code
	MaxStatusCode = 599 // Maximum valid HTTP status code
)

// HTTP Method Constants, lowercase as they appear in API declarations.
const (
	MethodGet     = "get"
	MethodPut     = "put"
	MethodPost    = "post"
	MethodDelete  = "delete"
	MethodOptions = "options"
	MethodHead    = "head"
	MethodPatch   = "patch"
	MethodTrace   = "trace" // OAS 3.0+ only
)

// Media types used by the serializer.
const (
	MediaTypeJSON        = "application/json"
	MediaTypeText        = "text/plain"
	MediaTypeOctetStream = "application/octet-stream"
)

// Methods lists the operation keys of a path item in declaration order.
var Methods = []string{
	MethodGet, MethodPut, MethodPost, MethodDelete,
	MethodOptions, MethodHead, MethodPatch, MethodTrace,
}

// IsMethod reports whether key is an operation key of a path item.
func IsMethod(key string) bool {
	for _, m := range Methods {
		if m == key {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether code lies in the 100-599 range.
func IsValidStatus(code int) bool {
	return code >= MinStatusCode && code <= MaxStatusCode
}

// MediaType returns the lowercase media type of a Content-Type value without
// parameters. Unparseable values fall back to the text before the first ';'.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}

// IsJSON reports whether a Content-Type value denotes JSON, including
// structured syntax suffixes such as application/problem+json.
func IsJSON(contentType string) bool {
	mt := MediaType(contentType)
	return mt == MediaTypeJSON || strings.HasSuffix(mt, "+json")
}

// IsText reports whether a Content-Type value denotes a text/* type.
func IsText(contentType string) bool {
	return strings.HasPrefix(MediaType(contentType), "text/")
}
