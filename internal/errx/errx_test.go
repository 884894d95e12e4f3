package errx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errSentinel = errors.New("sentinel failure")
	errCause    = errors.New("underlying cause")
)

func TestWrap_PreservesSentinelAndCause(t *testing.T) {
	err := Wrap(errSentinel, errCause)
	assert.True(t, errors.Is(err, errSentinel))
	assert.True(t, errors.Is(err, errCause))
	assert.Contains(t, err.Error(), "sentinel failure")
	assert.Contains(t, err.Error(), "underlying cause")
}

func TestWrap_NilCauseReturnsSentinel(t *testing.T) {
	err := Wrap(errSentinel, nil)
	assert.Equal(t, errSentinel, err)
}

func TestWith_AppendsMessage(t *testing.T) {
	err := With(errSentinel, ": vm %s not found", "vm-1")
	assert.True(t, errors.Is(err, errSentinel))
	assert.Contains(t, err.Error(), "vm-1")
}

func TestWith_EmptyFormatReturnsSentinel(t *testing.T) {
	err := With(errSentinel, "")
	assert.Equal(t, errSentinel, err)
}

func TestWith_SupportsNestedWrap(t *testing.T) {
	err := With(errSentinel, " %s: %w", "vm-1", errCause)
	assert.True(t, errors.Is(err, errSentinel))
	assert.True(t, errors.Is(err, errCause))
}
