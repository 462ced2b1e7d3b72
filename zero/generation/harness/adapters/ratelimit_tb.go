package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

// RouteThrottle gives every route its own token bucket of burst tokens,
// refilled one per interval. Calls over the rate are rejected, not queued.
type RouteThrottle struct {
	mu       sync.Mutex
	routes   map[string]*rate.Limiter
	burst    int
	interval time.Duration
	now      func() time.Time
}

func NewRouteThrottle(burst int, interval time.Duration) *RouteThrottle {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &RouteThrottle{
		routes:   make(map[string]*rate.Limiter),
		burst:    burst,
		interval: interval,
		now:      time.Now,
	}
}

// Admit takes a token for route or returns a *ThrottledError saying when one frees up.
func (t *RouteThrottle) Admit(ctx context.Context, route string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	lim, ok := t.routes[route]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.interval), t.burst)
		t.routes[route] = lim
	}
	t.mu.Unlock()

	now := t.now()
	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &ThrottledError{Route: route, RetryAfter: delay}
	}
	return nil
}

// ErrThrottled matches any *ThrottledError with errors.Is.
var ErrThrottled = &ThrottledError{}

type ThrottledError struct {
	Route      string
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many %s calls, retry in %s", e.Route, e.RetryAfter)
}

func (e *ThrottledError) Is(target error) bool {
	_, ok := target.(*ThrottledError)
	return ok
}

var _ ports.Throttle = (*RouteThrottle)(nil)
