package harnessports

import "context"

// Throttle admits or rejects endpoint calls per route ("send_turn", "complete").
type Throttle interface {
	Admit(ctx context.Context, route string) error
}
