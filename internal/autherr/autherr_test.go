package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	assert.False(t, InvalidArgument("bad input").Retryable())
	assert.False(t, PermissionDenied("nope").Retryable())
	assert.True(t, Internal("boom").Retryable())
	assert.True(t, Unknown("???").Retryable())
	assert.True(t, (&Error{Code: CodeUnavailable}).Retryable())
}

func TestWrap(t *testing.T) {
	t.Run("passes normalized errors through", func(t *testing.T) {
		orig := PermissionDenied("denied")
		assert.Same(t, orig, Wrap(orig))
	})

	t.Run("unwraps wrapped normalized errors", func(t *testing.T) {
		orig := InvalidArgument("bad")
		wrapped := fmt.Errorf("step failed: %w", orig)
		assert.Same(t, orig, Wrap(wrapped))
	})

	t.Run("classifies plain errors as unknown", func(t *testing.T) {
		ae := Wrap(errors.New("something broke"))
		assert.Equal(t, CodeUnknown, ae.Code)
	})
}

func TestFromResponseStructuredJSON(t *testing.T) {
	body := []byte(`{"error":{"code":403,"status":"PERMISSION_DENIED","message":"domain not allowed"}}`)
	ae := FromResponse(http.StatusForbidden, body)

	assert.Equal(t, CodePermissionDenied, ae.Code)
	assert.Equal(t, 403, ae.HTTPStatus)
	assert.Equal(t, "PERMISSION_DENIED", ae.SubCode)
	assert.Equal(t, "domain not allowed", ae.Message)
}

func TestFromResponseColonDelimitedSubCode(t *testing.T) {
	body := []byte(`{"error":{"code":400,"message":"INVALID_ARGUMENT: missing state token"}}`)
	ae := FromResponse(http.StatusBadRequest, body)

	assert.Equal(t, CodeInvalidArgument, ae.Code)
	assert.Equal(t, 400, ae.HTTPStatus)
	assert.Equal(t, "INVALID_ARGUMENT", ae.SubCode)
	assert.Equal(t, "missing state token", ae.Message)
}

func TestFromResponseTextBanner(t *testing.T) {
	body := []byte("<html><body>Error 401 (Unauthorized)!! That's all we know.</body></html>")
	ae := FromResponse(http.StatusBadGateway, body)

	require.NotNil(t, ae)
	assert.Equal(t, 401, ae.HTTPStatus)
	assert.Equal(t, CodePermissionDenied, ae.Code)
	assert.Empty(t, ae.SubCode)
}

func TestFromResponseUnparsable(t *testing.T) {
	ae := FromResponse(http.StatusServiceUnavailable, nil)
	assert.Equal(t, CodeUnavailable, ae.Code)
	assert.Equal(t, 503, ae.HTTPStatus)
}

func TestFromResponseMessageWithoutSubCode(t *testing.T) {
	body := []byte(`{"error":{"code":500,"message":"backend exploded"}}`)
	ae := FromResponse(http.StatusInternalServerError, body)

	assert.Equal(t, CodeInternal, ae.Code)
	assert.Empty(t, ae.SubCode)
	assert.Equal(t, "backend exploded", ae.Message)
}
