package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/logging"
)

func decodeLastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, false)

	err := oops.Code("AUTH_TEST").
		With("operation", "SetPassword").
		Errorf("something failed")

	logger.LogError("operation failed", err)

	entry := decodeLastLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "operation failed", entry["msg"])
	assert.Equal(t, "AUTH_TEST", entry["code"])
	assert.Contains(t, entry["context"], "operation")
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, false)

	logger.LogError("operation failed", errors.New("standard error"))

	entry := decodeLastLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "standard error")
	assert.NotContains(t, entry, "code")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, false).
		WithFields(map[string]any{"account_id": "abc"})

	logger.Info("hello")

	entry := decodeLastLine(t, &buf)
	assert.Equal(t, "abc", entry["account_id"])
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(&buf, false)

	var fromCtx *logging.Logger
	handler := logging.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logging.GetLoggerFromContext(r.Context())
		w.WriteHeader(http.StatusUnauthorized)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

	require.NotNil(t, fromCtx)
	entry := decodeLastLine(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "request completed", entry["msg"])
	assert.EqualValues(t, http.StatusUnauthorized, entry["status"])
	assert.Equal(t, "/api/v1/users/me", entry["path"])
}

func TestGetLoggerFromContext_Fallback(t *testing.T) {
	assert.NotNil(t, logging.GetLoggerFromContext(context.Background()))
}
