// Package metrics provides Prometheus instrumentation for the indexer.
//
// All metrics are prefixed with "media_indexer_" and registered with the
// default registry via promauto. They cover the indexing pipeline (runs,
// files processed, writer queue depth, batch flushes), thumbnail
// generation (durations, decode fallbacks by strategy, placeholders) and
// library contents by asset type.
//
// Call [InitializeMetrics] once at startup so labeled series appear from
// the first scrape, and [Serve] to expose the /metrics endpoint.
package metrics
