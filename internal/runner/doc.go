// Package runner provides the concurrent run controller for queryfire.
//
// The runner owns the worker pool for one workload: it spawns exactly one
// goroutine per simulated user, staggers worker starts over the configured
// ramp-up window so the population grows linearly, and joins every worker
// before returning.
//
// # Basic Usage
//
//	opts := runner.Options{
//		Users:    10,
//		Duration: time.Minute,
//		RampUp:   10 * time.Second,
//		Queries:  []string{"first query", "second query"},
//		Requester: myRequester,
//	}
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// # Requester Interface
//
// The [Requester] interface defines what a worker executes each iteration:
//
//	type Requester interface {
//		Do(ctx context.Context, query string) error
//	}
//
// Each worker cycles round-robin through the query list, wrapping when
// exhausted, until the run deadline passes. Workers observe the deadline
// between operations; an in-flight call is never interrupted.
//
// # Pacing
//
// An optional operations-per-second cap is enforced with a shared
// rate.Limiter. The limiter factory and the [Clock] are injectable for
// deterministic tests.
//
// # Edge Cases
//
// Zero users or an empty query list short-circuits to an empty [Result]
// without spawning workers or sleeping.
package runner
