package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/queryfire/queryfire/internal/metrics"
)

// syncBuffer guards a bytes.Buffer against concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressReporterEmitsUpdates(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Record(metrics.Outcome{Kind: metrics.KindSearch, Latency: 5 * time.Millisecond})
	collector.Record(metrics.Outcome{Kind: metrics.KindSearch, Latency: 7 * time.Millisecond})

	var buf syncBuffer
	p := NewProgressReporter(collector, 10*time.Millisecond, &buf)
	p.Start()
	time.Sleep(60 * time.Millisecond)
	p.Stop()

	out := buf.String()
	if !strings.Contains(out, "Search: 2 ops") {
		t.Fatalf("progress line missing search stats: %q", out)
	}
}

func TestProgressReporterIdleCollector(t *testing.T) {
	var buf syncBuffer
	p := NewProgressReporter(metrics.NewCollector(), 10*time.Millisecond, &buf)
	p.Start()
	time.Sleep(40 * time.Millisecond)
	p.Stop()

	if !strings.Contains(buf.String(), "Waiting for operations") {
		t.Fatalf("idle collector should show a waiting line: %q", buf.String())
	}
}

func TestProgressReporterStopIsIdempotent(t *testing.T) {
	p := NewProgressReporter(metrics.NewCollector(), 10*time.Millisecond, nil)
	p.Start()
	p.Stop()
	p.Stop() // must not panic or block
}

func TestProgressReporterStartTwice(t *testing.T) {
	p := NewProgressReporter(metrics.NewCollector(), 10*time.Millisecond, nil)
	p.Start()
	p.Start() // second start is a no-op
	p.Stop()
}
