package da

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	for _, err := range []error{ErrUnavailable, ErrNotProduced, ErrHeightMismatch} {
		require.True(t, IsTransient(fmt.Errorf("get 10: %w", err)))
	}
	require.False(t, IsTransient(fmt.Errorf("bad request")))
	require.False(t, IsTransient(nil))
}

func TestStatus(t *testing.T) {
	require.Equal(t, StatusOK, Status(nil))
	require.Equal(t, StatusNotProduced, Status(fmt.Errorf("%w: 10", ErrNotProduced)))
	require.Equal(t, StatusMismatch, Status(ErrHeightMismatch))
	require.Equal(t, StatusUnavailable, Status(ErrUnavailable))
	require.Equal(t, StatusError, Status(fmt.Errorf("other")))
}
