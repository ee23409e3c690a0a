package logging

import (
	"context"
	"time"
)

// Record is one sealed attempt as exported for external persistence.
type Record struct {
	Timestamp           time.Time `json:"timestamp"`
	RequestID           string    `json:"request_id"`
	TenantID            string    `json:"tenant_id,omitempty"`
	AgentType           string    `json:"agent_type"`
	Model               string    `json:"model"`
	ServedModel         string    `json:"served_model,omitempty"`
	Success             bool      `json:"success"`
	ShortCircuited      bool      `json:"short_circuited,omitempty"`
	DurationMS          int64     `json:"duration_ms"`
	InputTokens         int       `json:"input_tokens"`
	OutputTokens        int       `json:"output_tokens"`
	CachedTokens        int       `json:"cached_tokens"`
	CacheCreationTokens int       `json:"cache_creation_tokens"`
	CostUSD             float64   `json:"cost_usd,omitempty"`
	ErrorClass          string    `json:"error_class,omitempty"`
	Error               string    `json:"error,omitempty"`
}

// RecordSink receives sealed attempt records from the core. Enqueue is
// fire-and-forget; implementations buffer internally and must not block.
type RecordSink interface {
	Enqueue(rec *Record) error
	Shutdown(ctx context.Context) error
}

// NoopRecordSink discards records.
type NoopRecordSink struct{}

func NewNoopRecordSink() *NoopRecordSink {
	return &NoopRecordSink{}
}

func (s *NoopRecordSink) Enqueue(rec *Record) error { return nil }

func (s *NoopRecordSink) Shutdown(ctx context.Context) error { return nil }
