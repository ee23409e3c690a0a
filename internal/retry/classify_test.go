package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// timeoutError implements net.Error with Timeout() true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRetryable(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.False(t, Retryable(nil, nil, nil))
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		assert.True(t, Retryable(context.DeadlineExceeded, nil, nil))
		assert.True(t, Retryable(fmt.Errorf("call failed: %w", context.DeadlineExceeded), nil, nil))
	})

	t.Run("network timeout", func(t *testing.T) {
		var err net.Error = timeoutError{}
		assert.True(t, Retryable(err, nil, nil))
	})

	t.Run("connection errors", func(t *testing.T) {
		assert.True(t, Retryable(syscall.ECONNREFUSED, nil, nil))
		assert.True(t, Retryable(syscall.ECONNRESET, nil, nil))
		assert.True(t, Retryable(syscall.ETIMEDOUT, nil, nil))
	})

	t.Run("extra error targets", func(t *testing.T) {
		sentinel := errors.New("provider busy")
		wrapped := fmt.Errorf("chat: %w", sentinel)

		assert.True(t, Retryable(wrapped, []error{sentinel}, nil))
		assert.False(t, Retryable(errors.New("provider busy"), nil, nil))
	})

	t.Run("unknown errors are not retryable", func(t *testing.T) {
		assert.False(t, Retryable(errors.New("something odd happened"), nil, nil))
	})
}

func TestRetryableByMessage(t *testing.T) {
	retryable := []string{
		"Rate limit reached for requests",
		"HTTP 429 Too Many Requests",
		"server returned 500",
		"upstream 502 bad gateway",
		"503 service unavailable",
		"504 gateway timeout",
		"Overloaded",
		"Quota exceeded for quota metric",
		"You exceeded your current quota",
	}
	for _, msg := range retryable {
		t.Run(msg, func(t *testing.T) {
			assert.True(t, RetryableByMessage(errors.New(msg), nil))
		})
	}

	t.Run("plain failure is not retryable", func(t *testing.T) {
		assert.False(t, RetryableByMessage(errors.New("model returned garbage"), nil))
	})

	t.Run("extra substring pattern", func(t *testing.T) {
		err := errors.New("please slow down")
		assert.False(t, RetryableByMessage(err, nil))
		assert.True(t, RetryableByMessage(err, []string{"SLOW DOWN"}))
	})

	t.Run("extra regex pattern", func(t *testing.T) {
		err := errors.New("tokens per minute exceeded")
		assert.True(t, RetryableByMessage(err, []string{`tokens.*exceeded`}))
	})

	t.Run("invalid regex is ignored", func(t *testing.T) {
		assert.False(t, RetryableByMessage(errors.New("whatever"), []string{"(unclosed"}))
	})
}

func TestNonFallback(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.False(t, NonFallback(nil, nil))
	})

	t.Run("unsupported operations", func(t *testing.T) {
		assert.True(t, NonFallback(errors.ErrUnsupported, nil))
		assert.True(t, NonFallback(fmt.Errorf("chat: %w", errors.ErrUnsupported), nil))
	})

	t.Run("defect messages", func(t *testing.T) {
		assert.True(t, NonFallback(errors.New("streaming not implemented"), nil))
		assert.True(t, NonFallback(errors.New("unsupported model family"), nil))
		assert.True(t, NonFallback(errors.New("invalid argument: temperature"), nil))
		assert.True(t, NonFallback(errors.New("missing required field messages"), nil))
	})

	t.Run("transient errors stay eligible for fallback", func(t *testing.T) {
		assert.False(t, NonFallback(context.DeadlineExceeded, nil))
		assert.False(t, NonFallback(errors.New("rate limit reached"), nil))
		assert.False(t, NonFallback(errors.New("connection reset by peer"), nil))
	})

	t.Run("extra error targets", func(t *testing.T) {
		sentinel := errors.New("bad prompt template")
		wrapped := fmt.Errorf("chat: %w", sentinel)
		assert.True(t, NonFallback(wrapped, []error{sentinel}))
	})
}
