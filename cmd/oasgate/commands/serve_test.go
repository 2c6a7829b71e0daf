package commands

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasgate"
	"github.com/erraggy/oasgate/logging"
)

// upstreamServer echoes the path and user agent of every proxied request.
func upstreamServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("X-Upstream-Agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testServeConfig(t *testing.T, upstream string) *ServeConfig {
	t.Helper()
	cfg := DefaultServeConfig()
	cfg.Spec = writeFile(t, "api.yaml", petsSpec)
	cfg.Upstream = upstream
	return cfg
}

func do(t *testing.T, h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler(t *testing.T) {
	var hits atomic.Int32
	upstream := upstreamServer(t, &hits)

	h, api, err := NewHandler(testServeConfig(t, upstream.URL), logging.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "/v1", api.BasePath())
	assert.Equal(t, 3, api.Registry().Len())

	t.Run("valid request is proxied", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/pets?limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "/v1/pets", rec.Body.String())
		assert.Equal(t, oasgate.UserAgent(), rec.Header().Get("X-Upstream-Agent"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("client user agent is kept", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/pets/4", http.Header{"User-Agent": {"curl/8"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "curl/8", rec.Header().Get("X-Upstream-Agent"))
	})

	t.Run("invalid request never reaches the upstream", func(t *testing.T) {
		before := hits.Load()
		rec := do(t, h, http.MethodGet, "/v1/pets/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "petId")
		assert.Equal(t, before, hits.Load())
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "oasgate_middleware_exchanges_total")
		assert.Contains(t, body, "go_goroutines")
	})
}

func TestNewHandler_Options(t *testing.T) {
	var hits atomic.Int32
	upstream := upstreamServer(t, &hits)

	cfg := testServeConfig(t, upstream.URL)
	cfg.BasePath = "/api"
	cfg.StrictRouting = true
	cfg.MetricsPath = ""

	h, api, err := NewHandler(cfg, logging.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "/api", api.BasePath())

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/pets?limit=1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/pets?limit=1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", nil).Code)
}

func TestNewHandler_Errors(t *testing.T) {
	cfg := testServeConfig(t, "http://127.0.0.1:1")
	cfg.Spec = ""
	_, _, err := NewHandler(cfg, logging.NopLogger{})
	assert.ErrorContains(t, err, "--spec")

	cfg = testServeConfig(t, "http://[::1")
	_, _, err = NewHandler(cfg, logging.NopLogger{})
	assert.ErrorContains(t, err, "upstream")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	var hits atomic.Int32
	cfg := testServeConfig(t, upstreamServer(t, &hits).URL)
	cfg.Listen = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, logging.NopLogger{}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestServe_InvalidListenAddress(t *testing.T) {
	var hits atomic.Int32
	cfg := testServeConfig(t, upstreamServer(t, &hits).URL)
	cfg.Listen = "127.0.0.1:-1"

	err := Serve(context.Background(), cfg, logging.NopLogger{})
	assert.ErrorContains(t, err, "serving")
}
