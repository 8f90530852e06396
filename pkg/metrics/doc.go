/*
Package metrics provides Prometheus metrics collection and exposition
for nimbusfs. Metrics are registered at package init against the
default Prometheus registry and exposed via Handler() for scraping.

# Metric categories

RPC: request count and duration by method (pkg/api's logging
interceptor also logs every call; these metrics make it queryable).

Journal: flush attempts, conflicts and retries, and end-to-end flush
duration including retries — the numbers an operator watches to tell
whether a client is making sync progress or thrashing on conflicts.

Storage: blob count/size and entity count by file type, sampled on a
timer by Collector rather than computed per-request, since both
require a full store scan.

Write buffer: flush count by trigger (threshold vs. explicit close)
and bytes currently buffered across open files.

# Usage

	metrics.RPCRequestsTotal.WithLabelValues("ApplyJournal", "ok").Inc()

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.JournalFlushDuration)

	collector := metrics.NewCollector(entities, blobs)
	collector.Start()
	defer collector.Stop()

	mux.Handle("/metrics", metrics.Handler())
*/
package metrics
