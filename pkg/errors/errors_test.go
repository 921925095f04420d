package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msg      string
		expected string
	}{
		{
			name:     "wraps non-nil error",
			err:      ErrDownloadFailed,
			msg:      "fetching package",
			expected: "fetching package: download failed",
		},
		{
			name: "nil error returns nil",
			err:  nil,
			msg:  "ignored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err, tt.msg)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.Equal(t, tt.expected, got.Error())
			assert.True(t, stderrors.Is(got, tt.err))
		})
	}
}

func TestWrapf(t *testing.T) {
	got := Wrapf(ErrChecksumMismatch, "package %s", "calc")
	require.Error(t, got)
	assert.Equal(t, "package calc: checksum mismatch", got.Error())
	assert.True(t, stderrors.Is(got, ErrChecksumMismatch))

	assert.NoError(t, Wrapf(nil, "package %s", "calc"))
}

func TestDisplayableError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	de := NewDisplayable(cause, "Download failure", "Unable to download package: %s", "Calculator")

	assert.Equal(t, "Unable to download package: Calculator", de.Message)
	assert.Equal(t, "Download failure", de.Caption)
	assert.Contains(t, de.Error(), "connection reset")
	assert.True(t, stderrors.Is(de, cause))
}

func TestDisplayableError_NoCause(t *testing.T) {
	de := NewDisplayable(nil, "Download failure", "Unable to download package: %s", "Calculator")
	assert.Equal(t, "Unable to download package: Calculator", de.Error())
	assert.NoError(t, de.Unwrap())
}

func TestAsDisplayable(t *testing.T) {
	de := NewDisplayable(nil, "caption", "message")
	wrapped := Wrap(de, "outer context")

	got, ok := AsDisplayable(wrapped)
	require.True(t, ok)
	assert.Same(t, de, got)

	_, ok = AsDisplayable(fmt.Errorf("plain"))
	assert.False(t, ok)
}
