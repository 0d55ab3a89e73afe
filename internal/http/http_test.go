package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antistereov/singularity-core-sub003/internal/metrics"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func status(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["status"]
}

func TestServer_Health(t *testing.T) {
	server := NewServer(nil, "localhost", 8081, discardLogger(), nil, "")

	w := get(t, server.GetHandler(), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", status(t, w))
}

func TestServer_Ready(t *testing.T) {
	t.Run("NilDB", func(t *testing.T) {
		server := NewServer(nil, "localhost", 8081, discardLogger(), nil, "")

		w := get(t, server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not ready", status(t, w))
	})

	t.Run("PingSucceeds", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing()

		server := NewServer(db, "localhost", 8081, discardLogger(), nil, "")
		w := get(t, server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", status(t, w))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PingFails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		server := NewServer(db, "localhost", 8081, discardLogger(), nil, "")
		w := get(t, server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServer_RequestID(t *testing.T) {
	server := NewServer(nil, "localhost", 8081, discardLogger(), nil, "")

	w := get(t, server.GetHandler(), "/health")

	id, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestServer_Metrics(t *testing.T) {
	provider, err := metrics.NewProvider("ops")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	server := NewServer(nil, "localhost", 8081, discardLogger(), provider, "ops")
	get(t, server.GetHandler(), "/health")

	w := get(t, server.GetHandler(), "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `ops_ops_requests_total\{[^}]*route="/health"`, w.Body.String())
}

func TestServer_NoMetricsWhenDisabled(t *testing.T) {
	server := NewServer(nil, "localhost", 8081, discardLogger(), nil, "")

	w := get(t, server.GetHandler(), "/metrics")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger(), nil, "")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}
