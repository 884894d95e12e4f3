package broker

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDelay_ExponentialWithoutJitter(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: 0}
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, 100*time.Millisecond, cfg.CalculateDelay(1, rng))
	assert.Equal(t, 200*time.Millisecond, cfg.CalculateDelay(2, rng))
	assert.Equal(t, 400*time.Millisecond, cfg.CalculateDelay(3, rng))
	assert.Equal(t, 800*time.Millisecond, cfg.CalculateDelay(4, rng))
}

func TestCalculateDelay_CapsAtMaxDelay(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Jitter: 0}
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, 500*time.Millisecond, cfg.CalculateDelay(5, rng))
	assert.Equal(t, 500*time.Millisecond, cfg.CalculateDelay(9, rng))
}

func TestCalculateDelay_JitterStaysWithinSymmetricBand(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: 0.5}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		d := cfg.CalculateDelay(2, rng)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestShouldRetry_TransportShapedMessagesAreRetryable(t *testing.T) {
	cases := []string{
		"connection refused",
		"i/o timeout",
		"request timed out",
		"network unreachable",
		"temporary failure in name resolution",
		"dns lookup failed",
	}
	for _, msg := range cases {
		assert.True(t, ShouldRetry(errors.New(msg)), msg)
	}
}

func TestShouldRetry_AuthAndValidationAreNotRetryable(t *testing.T) {
	cases := []string{
		"unauthorized",
		"forbidden: missing scope",
		"invalid argument",
	}
	for _, msg := range cases {
		assert.False(t, ShouldRetry(errors.New(msg)), msg)
	}
}

func TestShouldRetry_InvalidWithTimeoutIsRetryable(t *testing.T) {
	assert.True(t, ShouldRetry(errors.New("invalid response: read timeout")))
}

func TestShouldRetry_HTTPStatusCodes(t *testing.T) {
	assert.True(t, ShouldRetry(errors.New("request failed: status 429")))
	assert.True(t, ShouldRetry(errors.New("request failed: status 500")))
	assert.True(t, ShouldRetry(errors.New("request failed: status 503")))
	assert.False(t, ShouldRetry(errors.New("request failed: status 501")))
	assert.False(t, ShouldRetry(errors.New("request failed: status 505")))
	assert.False(t, ShouldRetry(errors.New("request failed: status 404")))
}

func TestShouldRetry_RemoteStandardCodeIsNeverRetryable(t *testing.T) {
	assert.False(t, ShouldRetry(&Error{Code: ErrCodeServerError, Message: "server error"}))
	assert.False(t, ShouldRetry(&Error{Code: ErrCodeInitialization, Message: "bad handshake"}))
}

func TestShouldRetry_NilErrorIsNotRetryable(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
}
