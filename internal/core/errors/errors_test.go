package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassification(t *testing.T) {
	cause := stderrors.New("connection reset")

	retry := &RetryableError{Message: "partner rate limited", StatusCode: 429}
	fatal := &FatalError{Message: "partner request failed", Err: cause}

	require.True(t, IsRetryable(retry))
	require.False(t, IsFatal(retry))
	require.True(t, IsFatal(fatal))
	require.False(t, IsRetryable(fatal))

	wrapped := fmt.Errorf("onBatch: %w", retry)
	require.True(t, IsRetryable(wrapped))
	require.Equal(t, 429, StatusCode(wrapped))
	require.Equal(t, 0, StatusCode(fatal))
	require.Equal(t, 0, StatusCode(cause))

	require.ErrorIs(t, fatal, cause)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"message only", &FatalError{Message: "boom"}, "boom"},
		{"with status", &RetryableError{Message: "busy", StatusCode: 503}, "busy (status 503)"},
		{"with cause", &FatalError{Message: "send", Err: stderrors.New("eof")}, "send: eof"},
		{"status and cause", &FatalError{Message: "decode", StatusCode: 207, Err: stderrors.New("bad json")}, "decode (status 207): bad json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}
