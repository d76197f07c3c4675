package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorMessage(t *testing.T) {
	err := NewStatusError(StatusRuleError, "rule exploded")
	assert.Equal(t, "engine status 'rule exploded' (5)", err.Error())
}

func TestStatusErrorDefaultDescription(t *testing.T) {
	err := NewStatusError(StatusInvalidGeometry, "")
	assert.Equal(t, "invalid geometry", err.Description)

	err = NewStatusError(StatusCode(99), "")
	assert.Equal(t, "unspecified error", err.Description)
}

func TestStatusCodeDescriptions(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.Description())
	assert.Equal(t, "resolve failed", StatusResolveFailed.Description())
	assert.Equal(t, "encoder failed", StatusEncoderFailed.Description())
}
