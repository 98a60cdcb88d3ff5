// Package loadtest coordinates a full measurement run: it validates the
// configuration, spins up one worker population per operation kind, and
// aggregates the collected statistics into a single result.
package loadtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/queryfire/queryfire/internal/config"
	"github.com/queryfire/queryfire/internal/metrics"
	"github.com/queryfire/queryfire/internal/runner"
	"github.com/queryfire/queryfire/internal/workload"
)

// Options carries everything an Orchestrator needs. Searcher and
// Conversationalist may be nil when the configuration carries no queries of
// the matching kind.
type Options struct {
	Config            config.Config
	Searcher          workload.Searcher
	Conversationalist workload.Conversationalist
	Collector         *metrics.Collector
	Tracer            trace.Tracer
	FailureLogger     workload.FailureLogger

	// Clock and LimiterFactory are injectable for tests; nil selects the
	// real implementations.
	Clock          runner.Clock
	LimiterFactory func(rps int) *rate.Limiter
}

// Result summarizes a completed run.
type Result struct {
	RunID           string
	Success         bool
	Search          metrics.Stats
	Conversation    metrics.Stats
	TotalOperations int64
	FailedOps       int64
	Duration        time.Duration
}

// Orchestrator drives one load test run.
type Orchestrator struct {
	opt       Options
	collector *metrics.Collector
}

// New prepares an orchestrator. The collector defaults to a fresh one when
// Options.Collector is nil.
func New(opt Options) *Orchestrator {
	collector := opt.Collector
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Orchestrator{opt: opt, collector: collector}
}

// Collector exposes the collector backing this run so live reporters can
// observe it while the run is in flight.
func (o *Orchestrator) Collector() *metrics.Collector {
	return o.collector
}

// Run executes the configured phases and blocks until every worker has
// finished. Configuration problems surface as an error before any worker
// starts. Individual operation failures never fail the run; they are counted
// and reported. Only an internal fault (a panicking phase) marks the result
// unsuccessful.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	cfg := o.opt.Config
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	// Each invocation measures from a clean slate. The collector is reset
	// rather than replaced so reporters attached before Run keep observing
	// the live instance. A caller-supplied collector is the caller's to
	// manage and is left untouched.
	if o.opt.Collector == nil {
		o.collector.Reset()
	}

	clock := o.opt.Clock
	if clock == nil {
		clock = runner.SystemClock
	}

	invoker := workload.NewInvoker(workload.InvokerOptions{
		Searcher:          o.opt.Searcher,
		Conversationalist: o.opt.Conversationalist,
		Collector:         o.collector,
		Timeout:           cfg.Timeout,
		Tracer:            o.opt.Tracer,
		FailureLogger:     o.opt.FailureLogger,
	})

	// A configured rate caps the combined throughput of both phases, so
	// every phase draws from one shared limiter.
	limiterFactory := o.opt.LimiterFactory
	if limiterFactory == nil && cfg.Rate > 0 {
		shared := rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate)
		limiterFactory = func(int) *rate.Limiter { return shared }
	}

	phases := o.phases(cfg, invoker, clock, limiterFactory)

	result := Result{
		RunID:   ulid.Make().String(),
		Success: true,
	}
	if len(phases) == 0 {
		return result, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		phaseErrs []error
		failed    int64
	)

	start := clock.Now()
	for _, p := range phases {
		wg.Add(1)
		go func(p phase) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					phaseErrs = append(phaseErrs, fmt.Errorf("%s phase panicked: %v", p.kind, r))
					mu.Unlock()
				}
			}()
			res := p.runner.Run(ctx)
			mu.Lock()
			failed += res.Errors
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	elapsed := clock.Since(start)

	result.Duration = elapsed
	result.Search = o.collector.KindStats(metrics.KindSearch, elapsed)
	result.Conversation = o.collector.KindStats(metrics.KindConversation, elapsed)
	result.TotalOperations = o.collector.TotalRequests()
	result.FailedOps = failed

	if len(phaseErrs) > 0 {
		result.Success = false
		return result, phaseErrs[0]
	}
	return result, nil
}

type phase struct {
	kind   metrics.Kind
	runner *runner.Runner
}

// phases builds one runner per operation kind that has queries configured.
// Each phase gets the full user population; both share the collector and,
// when a rate cap is set, the limiter.
func (o *Orchestrator) phases(cfg config.Config, invoker *workload.Invoker, clock runner.Clock, limiterFactory func(int) *rate.Limiter) []phase {
	var phases []phase
	if len(cfg.SearchQueries) > 0 {
		phases = append(phases, phase{
			kind: metrics.KindSearch,
			runner: runner.New(runner.Options{
				Users:          cfg.Users,
				Duration:       cfg.Duration,
				RampUp:         cfg.RampUp,
				Queries:        cfg.SearchQueries,
				Rate:           cfg.Rate,
				Requester:      invoker.Bind(metrics.KindSearch),
				Clock:          clock,
				LimiterFactory: limiterFactory,
			}),
		})
	}
	if len(cfg.ConversationQueries) > 0 {
		phases = append(phases, phase{
			kind: metrics.KindConversation,
			runner: runner.New(runner.Options{
				Users:          cfg.Users,
				Duration:       cfg.Duration,
				RampUp:         cfg.RampUp,
				Queries:        cfg.ConversationQueries,
				Rate:           cfg.Rate,
				Requester:      invoker.Bind(metrics.KindConversation),
				Clock:          clock,
				LimiterFactory: limiterFactory,
			}),
		})
	}
	return phases
}
