package attempts

import "llm_resilience/internal/logging"

// Sink receives fire-and-forget attempt lifecycle notifications. No return
// value is consumed; implementations must not block the request path.
type Sink interface {
	AttemptStarted(modelID string)
	AttemptFinished(modelID string, success bool, durationMS int64)
}

// NoopSink discards notifications.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) AttemptStarted(modelID string) {}

func (s *NoopSink) AttemptFinished(modelID string, success bool, durationMS int64) {}

// LoggerSink writes notifications to the structured log.
type LoggerSink struct {
	logger *logging.Logger
}

func NewLoggerSink(logger *logging.Logger) *LoggerSink {
	if logger == nil {
		logger = logging.NewLogger("attempts")
	}
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) AttemptStarted(modelID string) {
	s.logger.Debug("attempt started", "model", modelID)
}

func (s *LoggerSink) AttemptFinished(modelID string, success bool, durationMS int64) {
	s.logger.Debug("attempt finished", "model", modelID, "success", success, "duration_ms", durationMS)
}
