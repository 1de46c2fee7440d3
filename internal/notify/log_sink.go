package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured audit line.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, e Event) error {
	s.log.Info().
		Str("event_id", e.ID.String()).
		Str("event", string(e.Type)).
		Str("business_id", e.BusinessID.String()).
		Interface("payload", e.Payload).
		Msg("event")
	return nil
}
