package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary for one workload.
type Result struct {
	Total    int64
	Errors   int64
	Duration time.Duration
}

// Runner drives one workload: it spawns a worker goroutine per simulated
// user, staggers their starts over the ramp-up window, and lets each worker
// issue operations round-robin over the query list until the deadline.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run executes the workload and blocks until every worker has terminated.
// With zero users or an empty query list it returns immediately with an
// empty Result; that is not an error.
func (r *Runner) Run(ctx context.Context) Result {
	clock := r.opt.Clock
	start := clock.Now()

	if r.opt.Users == 0 || len(r.opt.Queries) == 0 || r.opt.Requester == nil {
		return Result{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deadline := start.Add(r.opt.Duration)
	offsets := StartOffsets(r.opt.Users, r.opt.RampUp)
	pace := newPacer(r.opt)

	var total int64
	var errs int64

	var wg sync.WaitGroup
	wg.Add(r.opt.Users)
	for i := 0; i < r.opt.Users; i++ {
		go func(offset time.Duration) {
			defer wg.Done()

			if offset > 0 {
				if err := clock.Sleep(ctx, offset); err != nil {
					return
				}
			}

			cycle := newQueryCycle(r.opt.Queries)
			for {
				if ctx.Err() != nil {
					return
				}
				// The deadline is only observed between operations: an
				// in-flight call is allowed to finish, bounded by the
				// requester's own per-call timeout.
				if !clock.Now().Before(deadline) {
					return
				}
				if pace != nil {
					if err := pace.Wait(ctx); err != nil {
						return
					}
				}
				atomic.AddInt64(&total, 1)
				if err := r.opt.Requester.Do(ctx, cycle.Next()); err != nil {
					atomic.AddInt64(&errs, 1)
				}
			}
		}(offsets[i])
	}
	wg.Wait()

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: clock.Since(start),
	}
}

// queryCycle walks a query list round-robin, wrapping when exhausted.
// Each worker owns its own cycle, so every user replays the list from the
// beginning in order.
type queryCycle struct {
	queries []string
	next    int
}

func newQueryCycle(queries []string) *queryCycle {
	return &queryCycle{queries: queries}
}

func (c *queryCycle) Next() string {
	q := c.queries[c.next]
	c.next = (c.next + 1) % len(c.queries)
	return q
}
