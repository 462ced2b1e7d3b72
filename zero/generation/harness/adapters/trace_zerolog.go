package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

// LogTracer writes spans as pairs of debug lines sharing a span id.
// Events inside a span inherit its fields.
type LogTracer struct {
	logger zerolog.Logger
}

func NewLogTracer(logger zerolog.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func (t *LogTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	span := t.logger.With().
		Str("span", name).
		Str("span_id", uuid.NewString()).
		Fields(attrs).
		Logger()
	started := time.Now()

	span.Debug().Msg("span started")
	return span.WithContext(ctx), func(err error) {
		ev := span.Debug()
		if err != nil {
			ev = span.Warn().Err(err)
		}
		ev.Dur("elapsed", time.Since(started)).Msg("span finished")
	}
}

func (t *LogTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &t.logger
	}
	l.Info().Fields(attrs).Str("event", name).Send()
}

var _ ports.Tracer = (*LogTracer)(nil)
