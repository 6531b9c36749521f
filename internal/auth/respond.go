package auth

import (
	"errors"
	"net/http"

	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{ErrInvalidCredentials, http.StatusUnauthorized, httputil.CodeInvalidCredentials},
	{ErrUnauthenticated, http.StatusUnauthorized, httputil.CodeUnauthenticated},
	{ErrForbidden, http.StatusForbidden, httputil.CodeForbidden},
	{ErrDuplicateEmail, http.StatusBadRequest, httputil.CodeEmailAlreadyExists},
	{ErrResetTokenInvalid, http.StatusBadRequest, httputil.CodeResetTokenInvalid},
	{ErrResetTokenExpired, http.StatusBadRequest, httputil.CodeResetTokenExpired},
	{ErrEmailDeliveryFailed, http.StatusInternalServerError, httputil.CodeEmailDelivery},
}

// StatusFor maps an auth error to its HTTP status and error code.
// Unclassified errors map to 500.
func StatusFor(err error) (int, string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, httputil.CodeValidation
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, httputil.CodeInternalError
}

// writeError renders err as an envelope. Messages come from the error kind
// so wrapped context never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := StatusFor(err)

	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.RespondErrorWithCode(w, verr.Message, code, status)
		return
	case code == httputil.CodeInternalError:
		logging.GetLoggerFromContext(r.Context()).LogError("request failed", err)
		httputil.RespondErrorWithCode(w, "something went very wrong", code, status)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			if status >= http.StatusInternalServerError {
				logging.GetLoggerFromContext(r.Context()).LogError("request failed", err)
			}
			httputil.RespondErrorWithCode(w, m.kind.Error(), code, status)
			return
		}
	}
}
