package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Strategy selects how the base delay grows across attempts.
type Strategy string

const (
	StrategyExponential Strategy = "exponential"
	StrategyConstant    Strategy = "constant"
)

// Attempts beyond this shift would overflow int64 nanoseconds anyway.
const maxShift = 62

// BackoffSpec is a pure input to delay computation; it is never persisted.
type BackoffSpec struct {
	Strategy Strategy
	Base     time.Duration
	MaxDelay time.Duration
}

// DefaultBackoff provides reasonable defaults for provider retries.
func DefaultBackoff() BackoffSpec {
	return BackoffSpec{
		Strategy: StrategyExponential,
		Base:     500 * time.Millisecond,
		MaxDelay: 30 * time.Second,
	}
}

// Delay computes the wait before the given attempt (0-based). Exponential:
// min(base * 2^attempt, max) plus uniform jitter in [0, 50%] of the capped
// value. Constant: base plus the same jitter over base. Jitter is additive,
// so the result is never below the unjittered value and never above 1.5x the
// cap; concurrent retriers desynchronize without unbounded tail latency.
func (s BackoffSpec) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var capped time.Duration
	switch s.Strategy {
	case StrategyConstant:
		capped = s.Base
	default:
		capped = exponential(s.Base, attempt)
		if s.MaxDelay > 0 && capped > s.MaxDelay {
			capped = s.MaxDelay
		}
	}

	if capped <= 0 {
		return 0
	}

	jitter := time.Duration(rand.Int63n(int64(capped/2 + 1)))
	if capped > time.Duration(math.MaxInt64)-jitter {
		return time.Duration(math.MaxInt64)
	}
	return capped + jitter
}

// exponential computes base * 2^attempt with overflow protection.
func exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}

	multiplier := int64(1) << attempt
	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}
	return base * time.Duration(multiplier)
}

// Sleep waits for the given duration but respects context cancellation.
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	}
}
