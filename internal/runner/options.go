package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Requester abstracts executing a single operation for one query.
// Implementations should return an error for failed operations; the error is
// only ever counted, never propagated.
type Requester interface {
	Do(ctx context.Context, query string) error
}

// Options configure the Runner.
type Options struct {
	Users          int           // number of simulated concurrent users
	Duration       time.Duration // how long workers keep issuing operations
	RampUp         time.Duration // window over which users are started, 0 starts all at once
	Queries        []string      // query list cycled round-robin by each worker
	Rate           int           // operations per second cap across all workers (0 means unlimited)
	Requester      Requester     // operation executor (required)
	Clock          Clock         // optional injection for tests
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Users < 0 {
		o.Users = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.RampUp < 0 {
		o.RampUp = 0
	}
	if o.RampUp > o.Duration {
		o.RampUp = o.Duration
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
