package workload

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/queryfire/queryfire/internal/metrics"
	"github.com/queryfire/queryfire/internal/tracing"
)

// FailureLogger receives every failed invocation, if installed.
type FailureLogger interface {
	LogFailure(op Operation, latency time.Duration, err error)
}

// InvokerOptions configure an Invoker.
type InvokerOptions struct {
	Searcher          Searcher
	Conversationalist Conversationalist
	Collector         *metrics.Collector
	Timeout           time.Duration // per-call upper bound (0 means none)
	Tracer            trace.Tracer  // optional; one client span per call when set
	FailureLogger     FailureLogger // optional
}

// Invoker adapts an Operation into a single timed, outcome-recording call
// against the configured backend. Every failure mode — transport error,
// unsuccessful result payload, timeout, or a panicking backend — is converted
// into a failed Outcome; nothing escapes the Invoke boundary, so one failing
// simulated user can never abort the run for the others.
type Invoker struct {
	opt InvokerOptions
}

func NewInvoker(opt InvokerOptions) *Invoker {
	return &Invoker{opt: opt}
}

// Invoke performs exactly one call for the operation, measures wall-clock
// latency around it, records the Outcome, and returns it.
func (inv *Invoker) Invoke(ctx context.Context, op Operation) metrics.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if inv.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.opt.Timeout)
		defer cancel()
	}

	var span trace.Span
	if inv.opt.Tracer != nil {
		ctx, span = tracing.StartOperationSpan(ctx, inv.opt.Tracer, string(op.Kind), op.Query)
	}

	start := time.Now()
	err := inv.call(ctx, op)
	latency := time.Since(start)

	if span != nil {
		tracing.EndSpan(span, err)
	}

	outcome := metrics.Outcome{Kind: op.Kind, Latency: latency, Err: err}
	if inv.opt.Collector != nil {
		inv.opt.Collector.Record(outcome)
	}
	if err != nil && inv.opt.FailureLogger != nil {
		inv.opt.FailureLogger.LogFailure(op, latency, err)
	}
	return outcome
}

func (inv *Invoker) call(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s backend panic: %v", op.Kind, r)
		}
	}()

	switch op.Kind {
	case metrics.KindConversation:
		if inv.opt.Conversationalist == nil {
			return fmt.Errorf("no conversation backend configured")
		}
		answer, askErr := inv.opt.Conversationalist.Ask(ctx, op.Query)
		if askErr != nil {
			return askErr
		}
		if !answer.Success {
			return &ResultError{Kind: op.Kind, Message: answer.ErrorMessage}
		}
		return nil
	default:
		if inv.opt.Searcher == nil {
			return fmt.Errorf("no search backend configured")
		}
		result, searchErr := inv.opt.Searcher.Search(ctx, op.Query)
		if searchErr != nil {
			return searchErr
		}
		if !result.Success {
			return &ResultError{Kind: op.Kind, Message: result.ErrorMessage}
		}
		return nil
	}
}

// Bind returns a requester view of the Invoker fixed to one operation kind,
// suitable for handing to the run controller. The returned error mirrors the
// outcome's failure state and is only ever used for counting.
func (inv *Invoker) Bind(kind metrics.Kind) *BoundInvoker {
	return &BoundInvoker{inv: inv, kind: kind}
}

// BoundInvoker is an Invoker fixed to a single operation kind.
type BoundInvoker struct {
	inv  *Invoker
	kind metrics.Kind
}

func (b *BoundInvoker) Do(ctx context.Context, query string) error {
	outcome := b.inv.Invoke(ctx, Operation{Kind: b.kind, Query: query})
	return outcome.Err
}
