package ospfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDriverError__CodeMatchesSentinel(t *testing.T) {
	err := NewDriverError(ErrNoSpaceOnDevice)
	assert.Equal(t, ErrNoSpaceOnDevice, err.Code())
	assert.Equal(t, string(ErrNoSpaceOnDevice), err.Error())
}

func TestWithMessage__PreservesCode(t *testing.T) {
	err := NewDriverError(ErrExists).WithMessage("entry \"a\" already present")
	assert.Equal(t, ErrExists, err.Code())
	assert.Contains(t, err.Error(), "already present")
}

func TestWrap__PreservesCodeAndUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := NewDriverError(ErrIOFailed).Wrap(inner)
	assert.Equal(t, ErrIOFailed, err.Code())
	assert.ErrorIs(t, err, inner)
}

func TestCodeOf__NonDriverError(t *testing.T) {
	assert.Equal(t, OspfsError(""), CodeOf(errors.New("plain")))
	assert.Equal(t, OspfsError(""), CodeOf(nil))
}

func TestIsHelpers(t *testing.T) {
	require.True(t, IsNotFound(NewDriverError(ErrNotFound)))
	require.True(t, IsExists(NewDriverError(ErrExists)))
	require.True(t, IsNoSpace(NewDriverError(ErrNoSpaceOnDevice)))
	require.False(t, IsNotFound(NewDriverError(ErrExists)))
}
