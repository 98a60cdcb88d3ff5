// Package metrics provides thread-safe outcome collection and aggregation
// for the load harness.
//
// Every workload invocation produces one [Outcome] tagged with its operation
// [Kind] (search or conversation). Outcomes are folded into a [Collector],
// which keeps fully independent counters per kind so the two workloads never
// contend on a shared lock.
//
// # Collector
//
//	collector := metrics.NewCollector()
//
//	// From any number of worker goroutines:
//	collector.Record(metrics.Outcome{
//		Kind:    metrics.KindSearch,
//		Latency: latency,
//		Err:     err, // nil on success
//	})
//
//	// After all workers are joined:
//	snapshot := collector.Snapshot(elapsed)
//	searchStats := snapshot[metrics.KindSearch]
//
// # Statistics
//
// The [Stats] type carries request counts (total, successes, failures),
// latency min/mean/max and P50/P90/P99 percentiles backed by an HDR
// histogram, requests per second, and an error-type breakdown. Throughput
// is computed from the elapsed wall clock supplied by the caller, so every
// kind's rate is measured against the same observation window.
//
// # Thread Safety
//
// Record may be called concurrently from any number of goroutines. The
// invariant Total == Successes + Failures == number of Record calls holds
// for each kind regardless of interleaving.
package metrics
