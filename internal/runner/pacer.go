package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// pacer throttles operation issuance across all workers.
type pacer interface {
	Wait(ctx context.Context) error
}

// uniformPacer delegates pacing to a shared rate.Limiter (uniform spacing).
type uniformPacer struct {
	limiter *rate.Limiter
}

func newPacer(opt Options) pacer {
	if opt.Rate <= 0 {
		return nil
	}
	return &uniformPacer{limiter: opt.LimiterFactory(opt.Rate)}
}

func (u *uniformPacer) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}
