// Package orchestrator drives one logical request across candidate models,
// consulting the circuit breaker and budget tracker before each provider
// call and the retry policy after each failure.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"llm_resilience/internal/attempts"
	"llm_resilience/internal/breaker"
	"llm_resilience/internal/budget"
	"llm_resilience/internal/logging"
	"llm_resilience/internal/providers"
	"llm_resilience/internal/retry"
	"llm_resilience/internal/store"
	"llm_resilience/internal/tenancy"
)

// Candidate pairs a model with the provider that serves it. Candidates are
// tried in order; a later one is the fallback for an earlier one.
type Candidate struct {
	ModelID  string
	Provider providers.Provider
}

// Request describes one logical request to execute.
type Request struct {
	AgentType  string
	TenantID   string        // optional; resolved through tenancy config
	Timeout    time.Duration // overall deadline across retries, 0 = none
	Payload    map[string]any
	Candidates []Candidate

	// Extra classification inputs, unioned with the defaults.
	RetryErrors       []error
	RetryPatterns     []string
	NonFallbackErrors []error
}

// Result carries the winning response together with the full attempt log,
// which callers persist for observability and billing.
type Result struct {
	Response *providers.ChatResponse
	Log      *attempts.Tracker
}

// Executor wires the four resilience components together. It holds no
// per-request state; one Executor serves many concurrent requests.
type Executor struct {
	store      store.Store
	breakerCfg breaker.Config
	budget     *budget.Tracker
	backoff    retry.BackoffSpec
	tenant     tenancy.Config
	sink       attempts.Sink
	records    logging.RecordSink
	logger     *logging.Logger
}

// Option customizes an Executor.
type Option func(*Executor)

// WithRecordSink exports every sealed attempt to the given sink for external
// persistence.
func WithRecordSink(records logging.RecordSink) Option {
	return func(e *Executor) {
		if records != nil {
			e.records = records
		}
	}
}

// NewExecutor creates an executor. sink may be nil to disable attempt
// notifications.
func NewExecutor(s store.Store, breakerCfg breaker.Config, budgetTracker *budget.Tracker,
	backoff retry.BackoffSpec, tenant tenancy.Config, sink attempts.Sink, opts ...Option) *Executor {
	e := &Executor{
		store:      s,
		breakerCfg: breakerCfg,
		budget:     budgetTracker,
		backoff:    backoff,
		tenant:     tenant,
		sink:       sink,
		records:    logging.NewNoopRecordSink(),
		logger:     logging.NewLogger("orchestrator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute tries each candidate in order until one succeeds. The attempt log
// in the result is populated even when the returned error is non-nil.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	tracker := attempts.NewTracker(e.sink)
	result := &Result{Log: tracker}
	tenantID, _ := e.tenant.Resolve(req.TenantID)

	var lastErr error
	called := 0
	modelsTried := make([]string, 0, len(req.Candidates))

	for i, candidate := range req.Candidates {
		if req.Timeout > 0 && time.Since(start) >= req.Timeout {
			return result, &TotalTimeoutError{Timeout: req.Timeout, Elapsed: time.Since(start)}
		}

		br := breaker.New(e.store, e.breakerCfg, e.tenant, req.AgentType, candidate.ModelID,
			breaker.WithTenant(req.TenantID))
		if br.Open(ctx) {
			tracker.RecordShortCircuit(candidate.ModelID)
			e.exportLast(tracker, req.AgentType, tenantID, 0)
			lastErr = &CircuitOpenError{
				AgentType: req.AgentType,
				ModelID:   candidate.ModelID,
				TenantID:  tenantID,
			}
			continue
		}

		if err := e.budget.CheckBudget(ctx, req.AgentType, req.TenantID); err != nil {
			return result, err
		}

		modelsTried = append(modelsTried, candidate.ModelID)
		called++

		handle := tracker.StartAttempt(candidate.ModelID)
		resp, err := candidate.Provider.Chat(ctx, providers.ChatRequest{
			Model:   candidate.ModelID,
			Payload: req.Payload,
		})

		if err == nil {
			tracker.CompleteAttempt(handle, true, &attempts.Usage{
				InputTokens:         resp.InputTokens,
				OutputTokens:        resp.OutputTokens,
				CachedTokens:        resp.CachedTokens,
				CacheCreationTokens: resp.CacheCreationTokens,
				ModelID:             resp.ServedModel,
			}, nil)
			e.exportLast(tracker, req.AgentType, tenantID, resp.CostUSD)
			br.RecordSuccess(ctx)
			if resp.CostUSD > 0 {
				e.budget.RecordSpend(ctx, req.AgentType, resp.CostUSD, req.TenantID)
			}
			result.Response = resp
			return result, nil
		}

		tracker.CompleteAttempt(handle, false, nil, err)
		e.exportLast(tracker, req.AgentType, tenantID, 0)
		br.RecordFailure(ctx)
		lastErr = err

		if req.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) && time.Since(start) >= req.Timeout {
			return result, &TotalTimeoutError{Timeout: req.Timeout, Elapsed: time.Since(start)}
		}

		// A defect reproduces identically on every model; stop here.
		if retry.NonFallback(err, req.NonFallbackErrors) {
			e.logger.Warn("non-fallback error, aborting",
				"agent", req.AgentType, "model", candidate.ModelID, "error", err)
			return result, err
		}

		if i < len(req.Candidates)-1 && retry.Retryable(err, req.RetryErrors, req.RetryPatterns) {
			delay := e.backoff.Delay(i)
			e.logger.Debug("backing off before next candidate",
				"model", candidate.ModelID, "delay", delay)
			if sleepErr := retry.Sleep(ctx, delay); sleepErr != nil {
				if req.Timeout > 0 {
					return result, &TotalTimeoutError{Timeout: req.Timeout, Elapsed: time.Since(start)}
				}
				return result, sleepErr
			}
		}
	}

	if called == 0 && lastErr != nil {
		// Every candidate was short-circuited; surface the circuit condition.
		return result, lastErr
	}

	return result, &AllModelsExhaustedError{
		ModelsTried: modelsTried,
		LastErr:     lastErr,
		Attempts:    len(tracker.Attempts()),
	}
}

// exportLast enqueues the most recently sealed attempt to the record sink.
// Enqueue is fire-and-forget; a full buffer drops the record, not the request.
func (e *Executor) exportLast(tracker *attempts.Tracker, agentType, tenantID string, costUSD float64) {
	log := tracker.Attempts()
	if len(log) == 0 {
		return
	}
	a := log[len(log)-1]
	_ = e.records.Enqueue(&logging.Record{
		Timestamp:           a.StartedAt,
		RequestID:           tracker.RequestID().String(),
		TenantID:            tenantID,
		AgentType:           agentType,
		Model:               a.ModelID,
		ServedModel:         a.ServedModelID,
		Success:             a.Success,
		ShortCircuited:      a.ShortCircuited,
		DurationMS:          a.DurationMS,
		InputTokens:         a.InputTokens,
		OutputTokens:        a.OutputTokens,
		CachedTokens:        a.CachedTokens,
		CacheCreationTokens: a.CacheCreationTokens,
		CostUSD:             costUSD,
		ErrorClass:          a.ErrorClass,
		Error:               a.ErrorMessage,
	})
}
