package errors

import (
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	base := fmt.Errorf("base")
	wrapped := Wrap(base, "context")
	require.Error(t, wrapped)
	assert.Equal(t, "context: base", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)

	assert.NoError(t, Wrap(nil, "context"))
}

func TestWrapf(t *testing.T) {
	base := fmt.Errorf("base")
	wrapped := Wrapf(base, "asset %d", 42)
	require.Error(t, wrapped)
	assert.Equal(t, "asset 42: base", wrapped.Error())

	assert.NoError(t, Wrapf(nil, "asset %d", 42))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "connection", err: Wrap(ErrConnection, "GET failed"), want: KindNetwork},
		{name: "timeout", err: ErrTimeout, want: KindNetwork},
		{name: "proxy", err: ErrProxy, want: KindNetwork},
		{name: "not authorized", err: ErrNotAuthorized, want: KindAuthorization},
		{name: "url expired", err: Wrap(ErrURLExpired, "file 3"), want: KindProtocol},
		{name: "missing urls", err: ErrMissingURLs, want: KindProtocol},
		{name: "no space", err: ErrNoSpace, want: KindFilesystem},
		{name: "enospc from os", err: &os.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}, want: KindFilesystem},
		{name: "permission", err: ErrNoPermission, want: KindFilesystem},
		{name: "size mismatch", err: ErrSizeMismatch, want: KindIntegrity},
		{name: "user cancel", err: ErrUserCancelled, want: KindUserCancelled},
		{name: "unknown", err: fmt.Errorf("boom"), want: KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrConnection))
	assert.True(t, Retryable(ErrURLExpired))
	assert.False(t, Retryable(ErrNoSpace))
	assert.False(t, Retryable(ErrNoPermission))
	assert.False(t, Retryable(ErrNotAuthorized))
	assert.False(t, Retryable(ErrUserCancelled))
	assert.False(t, Retryable(ErrSizeMismatch))
}
