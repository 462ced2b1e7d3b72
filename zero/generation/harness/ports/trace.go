package harnessports

import "context"

// Tracer records timed spans around endpoint calls and point events inside them.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}
