package message

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/erraggy/oasgate/oaserrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders(t *testing.T) {
	h := Headers{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "X-Trace", Value: "a"},
		{Key: "x-trace", Value: "b"},
	}

	t.Run("Get is case-insensitive", func(t *testing.T) {
		assert.Equal(t, "application/json", h.Get("content-type"))
		assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))
		assert.Equal(t, "", h.Get("Accept"))
	})

	t.Run("Values keeps order across spellings", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, h.Values("X-TRACE"))
	})

	t.Run("Has and Without", func(t *testing.T) {
		assert.True(t, h.Has("x-trace"))
		stripped := h.Without("X-Trace")
		assert.False(t, stripped.Has("x-trace"))
		assert.Len(t, h, 3, "Without must not modify the receiver")
	})

	t.Run("HTTP canonicalizes keys", func(t *testing.T) {
		native := h.HTTP()
		assert.Equal(t, []string{"a", "b"}, native.Values("X-Trace"))
		assert.Equal(t, "application/json", native.Get("Content-Type"))
	})

	t.Run("HeadersFromHTTP is deterministic", func(t *testing.T) {
		native := http.Header{}
		native.Add("Zeta", "1")
		native.Add("Alpha", "2")
		native.Add("Alpha", "3")

		got := HeadersFromHTTP(native)
		assert.Equal(t, Headers{
			{Key: "Alpha", Value: "2"},
			{Key: "Alpha", Value: "3"},
			{Key: "Zeta", Value: "1"},
		}, got)
	})
}

func TestNewRequest(t *testing.T) {
	u, _ := url.Parse("http://example.com/pets/7?tag=a&tag=b&limit=3")
	pathParams := map[string]string{"petId": "7"}
	ctx := map[string]any{"request_id": "abc"}

	req := NewRequest(RequestParts{
		URL:        u,
		Method:     http.MethodGet,
		Route:      "/pets/{petId}",
		PathParams: pathParams,
		Query:      []Pair{{"tag", "a"}, {"tag", "b"}, {"limit", "3"}},
		Headers:    Headers{{Key: "Accept", Value: "application/json"}},
		Context:    ctx,
	})

	t.Run("exposes snapshot fields", func(t *testing.T) {
		assert.Equal(t, "/pets/7", req.Path())
		assert.Equal(t, "GET", req.Method())
		assert.Equal(t, "/pets/{petId}", req.Route())
		v, ok := req.PathParam("petId")
		assert.True(t, ok)
		assert.Equal(t, "7", v)
		assert.Equal(t, []string{"a", "b"}, req.QueryValues("tag"))
		assert.True(t, req.HasQuery("limit"))
		assert.False(t, req.HasQuery("offset"))
		assert.Equal(t, "application/json", req.Header("accept"))
	})

	t.Run("copies caller maps", func(t *testing.T) {
		pathParams["petId"] = "8"
		v, _ := req.PathParam("petId")
		assert.Equal(t, "7", v)
	})

	t.Run("context is passed through by reference", func(t *testing.T) {
		assert.Equal(t, "abc", req.Context()["request_id"])
	})

	t.Run("files is empty and non-nil", func(t *testing.T) {
		files := req.Files()
		require.NotNil(t, files)
		assert.Empty(t, files)
		files["x"] = 1
		assert.Empty(t, req.Files())
	})

	t.Run("nil URL defaults to root", func(t *testing.T) {
		assert.Equal(t, "/", NewRequest(RequestParts{}).Path())
	})
}

func TestRequest_DecodeJSON(t *testing.T) {
	t.Run("decodes valid JSON", func(t *testing.T) {
		req := NewRequest(RequestParts{Body: []byte(`{"a":1}`)})
		v, err := req.DecodeJSON()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, v)
	})

	t.Run("memoizes the decoder", func(t *testing.T) {
		calls := 0
		req := NewRequest(RequestParts{
			Body: []byte(`[1,2]`),
			Decoder: func(body []byte) (any, error) {
				calls++
				var v any
				err := json.Unmarshal(body, &v)
				return v, err
			},
		})

		first, err1 := req.DecodeJSON()
		second, err2 := req.DecodeJSON()
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid JSON is a malformed body", func(t *testing.T) {
		req := NewRequest(RequestParts{Body: []byte(`{"a":`)})
		_, err := req.DecodeJSON()
		require.Error(t, err)
		assert.True(t, errors.Is(err, oaserrors.ErrMalformedBody))

		_, again := req.DecodeJSON()
		assert.Equal(t, err, again)
	})

	t.Run("custom decoder errors are wrapped", func(t *testing.T) {
		req := NewRequest(RequestParts{
			Body:    []byte("x"),
			Decoder: func([]byte) (any, error) { return nil, errors.New("boom") },
		})
		_, err := req.DecodeJSON()
		var malformed *oaserrors.MalformedBodyError
		require.True(t, errors.As(err, &malformed))
		assert.EqualError(t, malformed.Cause, "boom")
	})

	t.Run("empty body is a malformed body", func(t *testing.T) {
		for name, body := range map[string][]byte{"nil": nil, "empty": {}} {
			t.Run(name, func(t *testing.T) {
				v, err := NewRequest(RequestParts{Body: body}).DecodeJSON()
				assert.Nil(t, v)
				var malformed *oaserrors.MalformedBodyError
				require.True(t, errors.As(err, &malformed), "got %v", err)
				assert.Equal(t, "application/json", malformed.MediaType)
			})
		}
	})
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestResponse_SerializeBody(t *testing.T) {
	tests := []struct {
		name     string
		resp     Response
		wantData string
		wantType string
	}{
		{
			name:     "structured value defaults to JSON",
			resp:     Response{Body: Unserialized{Value: map[string]int{"a": 1}}},
			wantData: `{"a":1}`,
			wantType: "application/json",
		},
		{
			name:     "string infers text",
			resp:     Response{Body: Unserialized{Value: "hello"}},
			wantData: "hello",
			wantType: "text/plain",
		},
		{
			name:     "string under JSON mime type is quoted",
			resp:     Response{MimeType: "application/json", Body: Unserialized{Value: "hello"}},
			wantData: `"hello"`,
			wantType: "application/json",
		},
		{
			name:     "raw JSON passes through",
			resp:     Response{Body: Unserialized{Value: json.RawMessage(`{"b":2}`)}},
			wantData: `{"b":2}`,
			wantType: "application/json",
		},
		{
			name:     "bytes infer octet stream",
			resp:     Response{Body: Unserialized{Value: []byte{0x01}}},
			wantData: "\x01",
			wantType: "application/octet-stream",
		},
		{
			name:     "hinted mime type wins over inference",
			resp:     Response{Body: Unserialized{Value: "<p/>", MimeType: "text/html"}},
			wantData: "<p/>",
			wantType: "text/html",
		},
		{
			name:     "explicit mime type wins over hint",
			resp:     Response{MimeType: "text/csv", Body: Unserialized{Value: "a,b", MimeType: "text/plain"}},
			wantData: "a,b",
			wantType: "text/csv",
		},
		{
			name: "explicit content type wins over mime type",
			resp: Response{
				MimeType:    "application/json",
				ContentType: "application/problem+json",
				Body:        Unserialized{Value: map[string]int{"status": 400}},
			},
			wantData: `{"status":400}`,
			wantType: "application/problem+json",
		},
		{
			name:     "serialized passes through with its type",
			resp:     Response{Body: Serialized{ContentType: "text/plain", Data: []byte("raw")}},
			wantData: "raw",
			wantType: "text/plain",
		},
		{
			name:     "stringer under text type",
			resp:     Response{MimeType: "text/plain", Body: Unserialized{Value: stringer{}}},
			wantData: "stringer",
			wantType: "text/plain",
		},
		{
			name:     "empty body has no inferred type",
			resp:     Response{StatusCode: 204},
			wantData: "",
			wantType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, contentType, err := tt.resp.SerializeBody()
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, string(data))
			assert.Equal(t, tt.wantType, contentType)
		})
	}

	t.Run("unencodable JSON value", func(t *testing.T) {
		resp := Response{Body: Unserialized{Value: make(chan int)}}
		_, _, err := resp.SerializeBody()
		assert.True(t, errors.Is(err, oaserrors.ErrSerialization))
	})

	t.Run("structured value under text type", func(t *testing.T) {
		resp := Response{ContentType: "text/plain", Body: Unserialized{Value: []int{1}}}
		_, contentType, err := resp.SerializeBody()
		var serr *oaserrors.SerializationError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "[]int", serr.ValueType)
		assert.Equal(t, "text/plain", contentType)
	})
}

func TestNewResponse(t *testing.T) {
	resp, err := NewResponse(201, Unserialized{Value: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	_, err = NewResponse(600, nil)
	assert.True(t, errors.Is(err, oaserrors.ErrConfig))
	assert.Error(t, CheckStatus(99))
}
