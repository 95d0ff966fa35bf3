package audit

import "go.uber.org/zap"

// ZapSink writes audit events to a structured logger. Useful for local
// development or as a companion to a durable sink.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps the given logger as a sink.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Record(e *Event) error {
	s.logger.Info("tool_event",
		zap.String("id", e.ID),
		zap.String("session_id", e.SessionID),
		zap.String("call_id", e.CallID),
		zap.String("type", string(e.Type)),
		zap.String("tool", e.Tool),
		zap.String("risk", e.Risk),
		zap.String("arguments", e.Arguments),
		zap.String("reason", e.Reason),
		zap.String("error", e.Error),
		zap.Float64("duration_ms", e.Duration),
	)
	return nil
}

func (s *ZapSink) Close() error { return nil }

// MultiSink fans one event out to several sinks. Record returns the
// first error from an underlying sink; later sinks still receive the
// event.
type MultiSink []Sink

func (m MultiSink) Record(e *Event) error {
	var first error
	for _, s := range m {
		if err := s.Record(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
