package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/queryfire/queryfire/internal/metrics"
)

// ProgressReporter writes a single updating status line while the run is in
// flight.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter updating at the given
// interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and waits for the reporter goroutine to exit.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			elapsed := time.Since(p.start)
			snapshot := p.collector.Snapshot(elapsed)
			line := "\r"
			first := true
			for _, kind := range metrics.Kinds() {
				stats := snapshot[kind]
				if stats.Total == 0 {
					continue
				}
				if !first {
					line += " | "
				}
				first = false
				line += fmt.Sprintf("%s: %d ops, %d failed, %.1f ops/s, p99 %.1fms",
					kindTitles[kind], stats.Total, stats.Failures, stats.RequestsPerSec, stats.P99LatencyMs)
			}
			if first {
				line += "Waiting for operations..."
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
