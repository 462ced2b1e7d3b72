package assistant

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Dispatcher runs background actions on a bounded pool. Failures and panics are
// turned into notices instead of crashing the host.
type Dispatcher struct {
	pool    *pool.Pool
	notices chan string
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher with at most workers concurrent jobs.
// Notices beyond the buffer are dropped.
func NewDispatcher(workers, buffer int, logger zerolog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 16
	}
	return &Dispatcher{
		pool:    pool.New().WithMaxGoroutines(workers),
		notices: make(chan string, buffer),
		logger:  logger,
	}
}

// Submit queues job. It blocks while all workers are busy.
// A non-empty notice returned by job, or the text of its error, is published on Notices.
func (d *Dispatcher) Submit(name string, job func() (notice string, err error)) {
	d.pool.Go(func() {
		var (
			pc     panics.Catcher
			notice string
			err    error
		)
		pc.Try(func() { notice, err = job() })
		if r := pc.Recovered(); r != nil {
			d.logger.Error().Str("job", name).Str("panic", fmt.Sprint(r.Value)).Msg("Background job panicked")
			err = r.AsError()
			notice = fmt.Sprintf("Something went wrong while running %s.", name)
		} else if err != nil {
			d.logger.Warn().Err(err).Str("job", name).Msg("Background job failed")
		}
		if notice != "" {
			d.publish(notice)
		}
	})
}

func (d *Dispatcher) publish(notice string) {
	select {
	case d.notices <- notice:
	default:
		d.logger.Warn().Str("notice", notice).Msg("Notice buffer full, dropping")
	}
}

// Notices delivers messages produced by background jobs.
func (d *Dispatcher) Notices() <-chan string {
	return d.notices
}

// Wait blocks until every submitted job has finished. The dispatcher cannot be
// used afterwards.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}
