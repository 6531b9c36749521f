package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondErrorWithCode_StatusByClass(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       string
	}{
		{"client error is fail", http.StatusBadRequest, StatusFail},
		{"unauthorized is fail", http.StatusUnauthorized, StatusFail},
		{"server error is error", http.StatusInternalServerError, StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondErrorWithCode(rec, "boom", CodeInternalError, tt.statusCode)

			assert.Equal(t, tt.statusCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decode(t, rec)
			assert.Equal(t, tt.want, body["status"])
			assert.Equal(t, "boom", body["message"])
			assert.Equal(t, CodeInternalError, body["code"])
		})
	}
}

func TestRespondToken_OmitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondToken(rec, "tok", nil, http.StatusOK)

	body := decode(t, rec)
	assert.Equal(t, StatusSuccess, body["status"])
	assert.Equal(t, "tok", body["token"])
	assert.NotContains(t, body, "data")
	assert.NotContains(t, body, "message")
	assert.NotContains(t, body, "code")
}

func TestRespondSuccess_WrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondSuccess(rec, map[string]any{"loggedIn": false}, http.StatusOK)

	body := decode(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, data["loggedIn"])
}
