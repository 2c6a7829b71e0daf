package message

import (
	"net/http"
	"sort"
	"strings"
)

// Pair is one key/value entry of an ordered multi-map such as a query string
// or a header list.
type Pair struct {
	Key   string
	Value string
}

// Headers is an ordered header list. Key comparison is case-insensitive.
type Headers []Pair

// Get returns the first value for key, or "" if the header is absent.
func (h Headers) Get(key string) string {
	for _, p := range h {
		if strings.EqualFold(p.Key, key) {
			return p.Value
		}
	}
	return ""
}

// Values returns every value for key in list order.
func (h Headers) Values(key string) []string {
	var values []string
	for _, p := range h {
		if strings.EqualFold(p.Key, key) {
			values = append(values, p.Value)
		}
	}
	return values
}

// Has reports whether key appears in the list.
func (h Headers) Has(key string) bool {
	for _, p := range h {
		if strings.EqualFold(p.Key, key) {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with every entry for key removed.
func (h Headers) Without(key string) Headers {
	out := make(Headers, 0, len(h))
	for _, p := range h {
		if !strings.EqualFold(p.Key, key) {
			out = append(out, p)
		}
	}
	return out
}

// HTTP converts the list to an http.Header, canonicalizing keys.
func (h Headers) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, p := range h {
		out.Add(p.Key, p.Value)
	}
	return out
}

// HeadersFromHTTP converts an http.Header to an ordered list. Keys are sorted
// so the result is deterministic; values keep their order per key.
func HeadersFromHTTP(h http.Header) Headers {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Headers, 0, len(h))
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, Pair{Key: k, Value: v})
		}
	}
	return out
}
