package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindAuth:       http.StatusUnauthorized,
		KindNotFound:   http.StatusNotFound,
		KindConflict:   http.StatusConflict,
		KindUpload:     http.StatusBadRequest,
		KindInternal:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status(), kind.String())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := Conflict("user with email or username already exists")
	wrapped := fmt.Errorf("register: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(wrapped, KindAuth))
}

func TestForeignErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	_, ok := As(err)
	assert.False(t, ok)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("sign failed")
	err := Internal("something went wrong while generating access and refresh token").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "sign failed")
	assert.Equal(t, http.StatusInternalServerError, err.Status())
}
