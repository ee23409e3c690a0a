// Package attempts records the sequence of provider attempts made while
// satisfying one logical request.
package attempts

import (
	"time"

	"github.com/google/uuid"
)

// ErrorClassCircuitOpen names the guard condition recorded on attempts that
// were blocked without a provider call.
const ErrorClassCircuitOpen = "CircuitOpenError"

// Attempt is one provider call (or a short-circuited non-call). Immutable
// once appended to the log.
type Attempt struct {
	ModelID             string
	StartedAt           time.Time
	DurationMS          int64
	Success             bool
	InputTokens         int
	OutputTokens        int
	CachedTokens        int
	CacheCreationTokens int
	ErrorClass          string
	ErrorMessage        string
	ShortCircuited      bool
	ServedModelID       string
}

// Usage is the response contract consumed on success: token counts plus the
// model the provider actually served, which may differ from the requested
// one when the provider routes internally.
type Usage struct {
	InputTokens         int
	OutputTokens        int
	CachedTokens        int
	CacheCreationTokens int
	ModelID             string
}

// Handle identifies an in-flight attempt between StartAttempt and
// CompleteAttempt.
type Handle struct {
	modelID   string
	startedAt time.Time
	start     time.Time // monotonic reading for duration
}

// Tracker owns the attempt log for one logical request. It is exclusively
// owned by that request's control flow and must not be shared across
// requests or goroutines.
type Tracker struct {
	requestID uuid.UUID
	attempts  []Attempt
	sink      Sink
}

// NewTracker creates a tracker for one logical request. A nil sink disables
// notifications.
func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = NewNoopSink()
	}
	return &Tracker{
		requestID: uuid.New(),
		sink:      sink,
	}
}

// RequestID identifies the logical request this log belongs to.
func (t *Tracker) RequestID() uuid.UUID {
	return t.requestID
}

// StartAttempt records the start of a provider call and emits a start
// notification.
func (t *Tracker) StartAttempt(modelID string) *Handle {
	now := time.Now()
	t.sink.AttemptStarted(modelID)
	return &Handle{
		modelID:   modelID,
		startedAt: now,
		start:     now, // time.Now carries the monotonic reading
	}
}

// CompleteAttempt seals the attempt: on success it copies token usage and
// the served model from usage, on failure it records the error's type name
// and message. A finish notification is emitted either way.
func (t *Tracker) CompleteAttempt(handle *Handle, success bool, usage *Usage, callErr error) {
	attempt := Attempt{
		ModelID:    handle.modelID,
		StartedAt:  handle.startedAt,
		DurationMS: time.Since(handle.start).Milliseconds(),
		Success:    success,
	}

	if success && usage != nil {
		attempt.InputTokens = usage.InputTokens
		attempt.OutputTokens = usage.OutputTokens
		attempt.CachedTokens = usage.CachedTokens
		attempt.CacheCreationTokens = usage.CacheCreationTokens
		attempt.ServedModelID = usage.ModelID
	}
	if callErr != nil {
		attempt.ErrorClass = errorClass(callErr)
		attempt.ErrorMessage = callErr.Error()
	}

	t.attempts = append(t.attempts, attempt)
	t.sink.AttemptFinished(handle.modelID, success, attempt.DurationMS)
}

// RecordShortCircuit appends a zero-duration failed attempt for a model the
// circuit breaker blocked. No notifications fire: no external call occurred.
func (t *Tracker) RecordShortCircuit(modelID string) {
	t.attempts = append(t.attempts, Attempt{
		ModelID:        modelID,
		StartedAt:      time.Now(),
		DurationMS:     0,
		Success:        false,
		ErrorClass:     ErrorClassCircuitOpen,
		ErrorMessage:   "circuit open for " + modelID,
		ShortCircuited: true,
	})
}

// Attempts returns the full ordered log.
func (t *Tracker) Attempts() []Attempt {
	return t.attempts
}

// TotalInputTokens sums input tokens over all attempts, failed included.
func (t *Tracker) TotalInputTokens() int {
	total := 0
	for _, a := range t.attempts {
		total += a.InputTokens
	}
	return total
}

// TotalOutputTokens sums output tokens over all attempts.
func (t *Tracker) TotalOutputTokens() int {
	total := 0
	for _, a := range t.attempts {
		total += a.OutputTokens
	}
	return total
}

// TotalDurationMS sums elapsed time over all attempts, short-circuited
// zero-duration ones included.
func (t *Tracker) TotalDurationMS() int64 {
	var total int64
	for _, a := range t.attempts {
		total += a.DurationMS
	}
	return total
}

// SuccessfulAttempt returns the first attempt that completed without an
// error, or nil.
func (t *Tracker) SuccessfulAttempt() *Attempt {
	for i := range t.attempts {
		if t.attempts[i].Success && t.attempts[i].ErrorClass == "" {
			return &t.attempts[i]
		}
	}
	return nil
}

// ChosenModelID returns the model that actually served the successful
// attempt, falling back to the requested model when the provider did not
// report one. Empty when no attempt succeeded.
func (t *Tracker) ChosenModelID() string {
	attempt := t.SuccessfulAttempt()
	if attempt == nil {
		return ""
	}
	if attempt.ServedModelID != "" {
		return attempt.ServedModelID
	}
	return attempt.ModelID
}

// ToJSON renders the log as string-keyed mappings suitable for external
// persistence.
func (t *Tracker) ToJSON() []map[string]any {
	out := make([]map[string]any, 0, len(t.attempts))
	for _, a := range t.attempts {
		entry := map[string]any{
			"model_id":              a.ModelID,
			"started_at":            a.StartedAt.UTC().Format(time.RFC3339Nano),
			"duration_ms":           a.DurationMS,
			"success":               a.Success,
			"input_tokens":          a.InputTokens,
			"output_tokens":         a.OutputTokens,
			"cached_tokens":         a.CachedTokens,
			"cache_creation_tokens": a.CacheCreationTokens,
			"short_circuited":       a.ShortCircuited,
		}
		if a.ErrorClass != "" {
			entry["error_class"] = a.ErrorClass
			entry["error_message"] = a.ErrorMessage
		}
		if a.ServedModelID != "" {
			entry["served_model_id"] = a.ServedModelID
		}
		out = append(out, entry)
	}
	return out
}
