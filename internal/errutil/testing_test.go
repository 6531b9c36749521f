package errutil_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/redmonkez12/natours-api/internal/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_VALIDATION").Errorf("bad input")
	errutil.AssertErrorCode(t, err, "AUTH_VALIDATION")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	id := uuid.New()
	err := oops.With("user_id", id).Errorf("lookup failed")
	errutil.AssertErrorContext(t, err, "user_id", id)
}
