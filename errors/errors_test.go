package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := Wrapf(ErrResolveFailed, "rule package %q", "extrusion.rpk")

	assert.True(t, Is(err, ErrResolveFailed))
	assert.False(t, Is(err, ErrMissingResolveMap))
	assert.Contains(t, err.Error(), "extrusion.rpk")
}

func TestIsRequestError(t *testing.T) {
	assert.True(t, IsRequestError(ErrAttributeCount))
	assert.True(t, IsRequestError(Wrap(ErrBadOutputPath, "generate")))
	assert.True(t, IsRequestError(ErrMissingResolveMap))

	// Construction-time invalidity is not a per-request error.
	assert.False(t, IsRequestError(ErrInvalidGenerator))
	assert.False(t, IsRequestError(New("unrelated")))
	assert.False(t, IsRequestError(nil))
}
