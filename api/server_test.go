package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/pagegate/core"
	"github.com/gaurav-prasanna/pagegate/core/capability"
	"github.com/gaurav-prasanna/pagegate/core/gateway"
	"github.com/gaurav-prasanna/pagegate/core/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoInput struct {
	Text string `json:"text" jsonschema_description:"text to return"`
}

type fileInput struct {
	Path string `json:"path"`
}

func testCapabilities() []capability.Capability {
	return []capability.Capability{
		capability.New("echo", "returns its input", func(_ context.Context, in echoInput) (map[string]any, error) {
			return map[string]any{"text": in.Text}, nil
		}),
		capability.New("render", "always fails", func(context.Context, echoInput) (map[string]any, error) {
			return nil, errors.New("renderer exploded")
		}),
		capability.New("reader", "needs a file", func(_ context.Context, in fileInput) (map[string]any, error) {
			return nil, core.ErrMissingInput
		}),
	}
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(context.Background(), testCapabilities()...))
	return New(gateway.New(reg), opts...), reg
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var decoded map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &decoded)
	return rr, decoded
}

func TestServer_List(t *testing.T) {
	s, _ := newTestServer(t)
	rr, _ := do(t, s, http.MethodGet, "/capabilities", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["echo","render","reader"]`, rr.Body.String())
}

func TestServer_Contract(t *testing.T) {
	s, _ := newTestServer(t)
	rr, body := do(t, s, http.MethodGet, "/capabilities/echo/contract", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"name": "echo",
		"description": "returns its input",
		"inputFields": [{"fieldName": "text", "kind": "string", "description": "text to return", "required": true}]
	}`, rr.Body.String())
	assert.Equal(t, "echo", body["name"])

	rr, body = do(t, s, http.MethodGet, "/capabilities/nope/contract", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", body["error"])
	assert.Equal(t, "not_found", body["kind"])
}

func TestServer_Schema(t *testing.T) {
	s, _ := newTestServer(t)
	rr, body := do(t, s, http.MethodGet, "/capabilities/echo/schema", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "echo", body["title"])
	assert.Contains(t, body["properties"], "text")

	rr, _ = do(t, s, http.MethodGet, "/capabilities/nope/schema", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_Invoke(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"success", `{"capability":"echo","input":{"text":"hi"}}`, http.StatusOK, ""},
		{"unknown capability", `{"capability":"nope","input":{}}`, http.StatusNotFound, "not_found"},
		{"validation", `{"capability":"echo","input":{}}`, http.StatusUnprocessableEntity, "validation_error"},
		{"missing input", `{"capability":"reader","input":{"path":"x"}}`, http.StatusUnprocessableEntity, "missing_input"},
		{"execution", `{"capability":"render","input":{"text":"x"}}`, http.StatusInternalServerError, "execution_error"},
		{"malformed body", `{"capability":`, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, s, http.MethodPost, "/capabilities/invoke", tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.kind == "" {
				assert.Equal(t, map[string]any{"output": map[string]any{"text": "hi"}}, body)
				return
			}
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServer_Invoke_ValidationNamesField(t *testing.T) {
	s, _ := newTestServer(t)
	_, body := do(t, s, http.MethodPost, "/capabilities/invoke", `{"capability":"echo","input":{}}`)
	assert.Contains(t, body["error"], "text")
}

func TestServer_Rescan(t *testing.T) {
	calls := 0
	var reg *registry.Registry
	s, reg := newTestServer(t, WithRescan(func(ctx context.Context) (*registry.Snapshot, error) {
		calls++
		if calls > 1 {
			return nil, &registry.DiscoveryError{Reason: registry.ReasonEmptyRegistry, Unit: "manifests"}
		}
		return reg.Snapshot(), nil
	}))

	rr, body := do(t, s, http.MethodPost, "/capabilities/rescan", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"echo", "render", "reader"}, body["capabilities"])

	rr, body = do(t, s, http.MethodPost, "/capabilities/rescan", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "discovery_error", body["kind"])
}

func TestServer_Rescan_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t)
	rr, _ := do(t, s, http.MethodPost, "/capabilities/rescan", "")
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	s, _ := newTestServer(t, WithMetrics(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}), NewHTTPMetrics(promReg)))

	rr, body := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["capabilities"])

	rr, _ = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `pagegate_http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestServer_CORS(t *testing.T) {
	s, _ := newTestServer(t, WithCORSOrigins([]string{"http://console.example"}))
	req := httptest.NewRequest(http.MethodGet, "/capabilities", nil)
	req.Header.Set("Origin", "http://console.example")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "http://console.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(gateway.Success(nil)))
	assert.Equal(t, http.StatusNotFound, StatusFor(gateway.Fail(core.KindNotFound, "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(gateway.Fail(core.KindMissingInput, "x")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(gateway.Fail(core.KindDiscovery, "x")))
}

func TestServer_Serve_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Serve(ctx, "127.0.0.1:0", 0))
}
