// Package output renders run results: plain-text and JSON summaries, a live
// progress line, and a standalone HTML report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/queryfire/queryfire/internal/metrics"
	"github.com/queryfire/queryfire/internal/threshold"
)

// Report bundles everything a reporter needs about a finished run.
type Report struct {
	RunID            string
	Duration         time.Duration
	Stats            map[metrics.Kind]metrics.Stats
	ThresholdResults []threshold.Result
}

// TotalOperations sums operation counts across kinds.
func (r Report) TotalOperations() int64 {
	var total int64
	for _, s := range r.Stats {
		total += s.Total
	}
	return total
}

var kindTitles = map[metrics.Kind]string{
	metrics.KindSearch:       "Search",
	metrics.KindConversation: "Conversation",
}

// PrintReport outputs a human-readable summary, one section per operation
// kind that saw traffic.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Run ID:            %s\n", r.RunID)
	fmt.Fprintf(w, "Duration:          %s\n", r.Duration)
	fmt.Fprintf(w, "Total Operations:  %d\n", r.TotalOperations())

	for _, kind := range metrics.Kinds() {
		stats, ok := r.Stats[kind]
		if !ok || stats.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", kindTitles[kind])
		fmt.Fprintf(w, "  Operations:      %d\n", stats.Total)
		fmt.Fprintf(w, "  Successful:      %d\n", stats.Successes)
		fmt.Fprintf(w, "  Failed:          %d\n", stats.Failures)
		fmt.Fprintf(w, "  Throughput:      %.2f ops/sec\n", stats.RequestsPerSec)
		fmt.Fprintln(w, "  Latency:")
		fmt.Fprintf(w, "    Min:           %s\n", stats.MinLatency)
		fmt.Fprintf(w, "    Max:           %s\n", stats.MaxLatency)
		fmt.Fprintf(w, "    Mean:          %s\n", stats.MeanLatency)
		fmt.Fprintf(w, "    P50:           %s\n", stats.P50Latency)
		fmt.Fprintf(w, "    P90:           %s\n", stats.P90Latency)
		fmt.Fprintf(w, "    P99:           %s\n", stats.P99Latency)

		if len(stats.Errors) > 0 {
			fmt.Fprintln(w, "  Errors:")
			for _, bucket := range metrics.FlattenErrorBuckets(stats.Errors) {
				fmt.Fprintf(w, "    %s: %d\n", bucket.Type, bucket.Count)
			}
		}
	}

	if len(r.ThresholdResults) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, res := range r.ThresholdResults {
			fmt.Fprintf(w, "  %s\n", res.Message)
		}
	}
}

type jsonReport struct {
	RunID           string          `json:"run_id"`
	DurationMs      float64         `json:"duration_ms"`
	TotalOperations int64           `json:"total_operations"`
	Search          *metrics.Stats  `json:"search,omitempty"`
	Conversation    *metrics.Stats  `json:"conversation,omitempty"`
	Thresholds      []jsonThreshold `json:"thresholds,omitempty"`
}

type jsonThreshold struct {
	Threshold string  `json:"threshold"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// PrintJSONReport outputs a machine-readable report.
func PrintJSONReport(w io.Writer, r Report) error {
	out := jsonReport{
		RunID:           r.RunID,
		DurationMs:      float64(r.Duration) / float64(time.Millisecond),
		TotalOperations: r.TotalOperations(),
	}
	if stats, ok := r.Stats[metrics.KindSearch]; ok && stats.Total > 0 {
		s := stats
		out.Search = &s
	}
	if stats, ok := r.Stats[metrics.KindConversation]; ok && stats.Total > 0 {
		s := stats
		out.Conversation = &s
	}
	for _, res := range r.ThresholdResults {
		out.Thresholds = append(out.Thresholds, jsonThreshold{
			Threshold: res.Threshold.Raw,
			Actual:    res.Actual,
			Pass:      res.Pass,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
