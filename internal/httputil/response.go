package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSend status values
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Response is the JSend-style envelope every endpoint writes
type Response struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondSuccess sends a success envelope
func RespondSuccess(w http.ResponseWriter, data any, statusCode int) {
	RespondJSON(w, Response{Status: StatusSuccess, Data: data}, statusCode)
}

// RespondToken sends a success envelope carrying a session token
func RespondToken(w http.ResponseWriter, token string, data any, statusCode int) {
	RespondJSON(w, Response{Status: StatusSuccess, Token: token, Data: data}, statusCode)
}

// RespondMessage sends a success envelope with only a message
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, Response{Status: StatusSuccess, Message: message}, statusCode)
}

// RespondErrorWithCode sends an error envelope with a machine-readable code.
// 4xx statuses are reported as "fail", 5xx as "error".
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	status := StatusFail
	if statusCode >= http.StatusInternalServerError {
		status = StatusError
	}
	RespondJSON(w, Response{Status: status, Message: message, Code: code}, statusCode)
}

// RespondError sends an error envelope without a code
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondErrorWithCode(w, message, "", statusCode)
}
