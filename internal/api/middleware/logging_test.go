package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireguard/fireguard/internal/api/middleware"
)

func captureLog(t *testing.T, h http.Handler, req *http.Request) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := httptest.NewRecorder()
	middleware.RequestID(middleware.Logging(logger)(h)).ServeHTTP(w, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry, w
}

func TestLogging_RecordsRequest(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	entry, w := captureLog(t, h, httptest.NewRequest(http.MethodGet, "/locations/abc", nil))

	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/locations/abc", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), entry["requestId"])
	assert.Contains(t, entry, "duration_ms")
	assert.NotContains(t, entry, "username")
}

func TestLogging_ImplicitOKAndUsername(t *testing.T) {
	t.Parallel()

	h := middleware.Authenticate(&mockValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	entry, _ := captureLog(t, h, req)

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "kari", entry["username"])
}

func TestLogging_ServerErrorLevel(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	entry, _ := captureLog(t, h, httptest.NewRequest(http.MethodPost, "/users", nil))

	assert.Equal(t, "ERROR", entry["level"])
}
