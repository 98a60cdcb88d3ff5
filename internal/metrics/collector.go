package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Kind identifies which workload an outcome belongs to.
type Kind string

const (
	KindSearch       Kind = "search"
	KindConversation Kind = "conversation"
)

// Kinds lists every operation kind in report order.
func Kinds() []Kind {
	return []Kind{KindSearch, KindConversation}
}

// Outcome is the immutable record of a single workload invocation.
// It is created by the workload invoker and consumed exactly once
// by the collector.
type Outcome struct {
	Kind    Kind
	Latency time.Duration
	Err     error
}

// Success reports whether the invocation completed without failure.
func (o Outcome) Success() bool { return o.Err == nil }

// ErrorMessage returns the failure description, or "" for successful outcomes.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Collector records per-invocation outcomes in a thread-safe manner.
// Each operation kind owns independent counters guarded by its own mutex,
// so search workers and conversation workers never contend with each other.
type Collector struct {
	search       kindState
	conversation kindState
}

type kindState struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByType map[string]int64
}

// Stats represents aggregated metrics for a single operation kind.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64        `json:"min_latency_ms"`
	MaxLatencyMs  float64        `json:"max_latency_ms"`
	MeanLatencyMs float64        `json:"mean_latency_ms"`
	P50LatencyMs  float64        `json:"p50_latency_ms"`
	P90LatencyMs  float64        `json:"p90_latency_ms"`
	P99LatencyMs  float64        `json:"p99_latency_ms"`
	DurationMs    float64        `json:"duration_ms"`
	Errors        map[string]int `json:"errors,omitempty"`
}

// FailureRate returns failures as a fraction of total requests.
func (s Stats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Total)
}

func NewCollector() *Collector {
	c := &Collector{}
	c.search.init()
	c.conversation.init()
	return c
}

func (s *kindState) init() {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	s.hist = hdrhistogram.New(1, 60_000_000, 3)
	s.errorsByType = make(map[string]int64)
}

func (c *Collector) state(kind Kind) *kindState {
	if kind == KindConversation {
		return &c.conversation
	}
	return &c.search
}

// Record folds a single outcome into the counters for its operation kind.
// Safe for concurrent use by any number of worker goroutines.
func (c *Collector) Record(o Outcome) {
	s := c.state(o.Kind)
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Latency > 0 {
		us := o.Latency.Microseconds()
		if us < s.hist.LowestTrackableValue() {
			us = s.hist.LowestTrackableValue()
		}
		if us > s.hist.HighestTrackableValue() {
			us = s.hist.HighestTrackableValue()
		}
		_ = s.hist.RecordValue(us)
	}
	s.sumLatency += o.Latency

	if s.minLatency == 0 || o.Latency < s.minLatency {
		s.minLatency = o.Latency
	}
	if o.Latency > s.maxLatency {
		s.maxLatency = o.Latency
	}

	if o.Err == nil {
		s.successes++
	} else {
		s.failures++
		errorType := fmt.Sprintf("%T", o.Err)
		if len(errorType) > 30 {
			errorType = errorType[len(errorType)-30:]
		}
		s.errorsByType[errorType]++
	}
}

// Reset discards every recorded outcome, returning the collector to its
// initial state. Reporters holding the collector keep observing the same
// instance across the reset. Not safe to call while workers are recording.
func (c *Collector) Reset() {
	c.search.reset()
	c.conversation.reset()
}

func (s *kindState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hist.Reset()
	s.successes = 0
	s.failures = 0
	s.minLatency = 0
	s.maxLatency = 0
	s.sumLatency = 0
	s.errorsByType = make(map[string]int64)
}

// Snapshot computes aggregated statistics for every operation kind.
// Throughput is derived from the caller-supplied elapsed wall clock,
// not per-outcome timestamps. The returned snapshot only reflects the
// complete run once every worker has been joined.
func (c *Collector) Snapshot(elapsed time.Duration) map[Kind]Stats {
	return map[Kind]Stats{
		KindSearch:       c.search.stats(elapsed),
		KindConversation: c.conversation.stats(elapsed),
	}
}

// KindStats computes aggregated statistics for a single operation kind.
func (c *Collector) KindStats(kind Kind, elapsed time.Duration) Stats {
	return c.state(kind).stats(elapsed)
}

// TotalRequests returns the combined request count across all kinds.
func (c *Collector) TotalRequests() int64 {
	return c.search.total() + c.conversation.total()
}

func (s *kindState) total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successes + s.failures
}

func (s *kindState) stats(elapsed time.Duration) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.successes + s.failures
	stats := Stats{
		Total:      total,
		Successes:  s.successes,
		Failures:   s.failures,
		MinLatency: s.minLatency,
		MaxLatency: s.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(s.sumLatency) / total)
	}

	if s.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(s.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(s.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(s.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)

	stats.Duration = elapsed
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(s.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(s.errorsByType))
		for k, v := range s.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

// ErrorBreakdown returns a map of error types to their counts for one kind.
func (c *Collector) ErrorBreakdown(kind Kind) map[string]int {
	s := c.state(kind)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]int)
	for k, v := range s.errorsByType {
		result[k] = int(v)
	}
	return result
}
