package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindValidation:      http.StatusBadRequest,
		KindFatal:           http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestFatalWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("publish: %w", Fatal("failed to save post", cause))

	require.ErrorIs(t, err, cause)
	require.True(t, Is(err, KindFatal))
	require.Equal(t, KindFatal, KindOf(err))
	require.Contains(t, err.Error(), "disk full")
}

func TestWrapErrorKeepsAppError(t *testing.T) {
	orig := Validation(CodeContentLength, "too short")
	require.Same(t, orig, WrapError(fmt.Errorf("ctx: %w", orig), CodeInternalError))

	wrapped := WrapError(errors.New("raw"), CodeDatabaseError)
	require.Equal(t, KindFatal, wrapped.Kind)
	require.Equal(t, CodeDatabaseError, wrapped.Code)
	require.Nil(t, WrapError(nil, CodeDatabaseError))
}
