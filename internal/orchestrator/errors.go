package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// DomainError is the common surface of every error this core raises on
// purpose, so callers can catch broadly with errors.As(&DomainError) or
// narrowly by concrete type. budget.ExceededError satisfies it too.
type DomainError interface {
	error
	DomainError()
}

// CircuitOpenError reports that the breaker blocked every remaining
// candidate and no provider call should be attempted.
type CircuitOpenError struct {
	AgentType string
	ModelID   string
	TenantID  string
}

func (e *CircuitOpenError) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("circuit open for %s/%s (tenant %s)", e.AgentType, e.ModelID, e.TenantID)
	}
	return fmt.Sprintf("circuit open for %s/%s", e.AgentType, e.ModelID)
}

func (e *CircuitOpenError) DomainError() {}

// TotalTimeoutError reports that the caller-wide deadline elapsed across
// retries and fallbacks.
type TotalTimeoutError struct {
	Timeout time.Duration
	Elapsed time.Duration
}

func (e *TotalTimeoutError) Error() string {
	return fmt.Sprintf("total timeout %s exceeded after %s", e.Timeout, e.Elapsed.Round(time.Millisecond))
}

func (e *TotalTimeoutError) DomainError() {}

// AllModelsExhaustedError reports that every candidate model failed.
type AllModelsExhaustedError struct {
	ModelsTried []string
	LastErr     error
	Attempts    int
}

func (e *AllModelsExhaustedError) Error() string {
	return fmt.Sprintf("all models exhausted after %d attempts (%s): last error: %v",
		e.Attempts, strings.Join(e.ModelsTried, ", "), e.LastErr)
}

func (e *AllModelsExhaustedError) Unwrap() error { return e.LastErr }

func (e *AllModelsExhaustedError) DomainError() {}
