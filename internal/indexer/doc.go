// Package indexer implements the library indexing pipeline: a parallel
// scan that fingerprints every media file under the library root, a
// bounded queue feeding a single database writer that commits assets in
// batches, and an orphan cleanup pass that only runs after a scan
// finishes without cancellation.
//
// Files whose fingerprint is unchanged since the previous run are
// skipped without metadata extraction, so a rescan of an unchanged
// library performs no writes.
package indexer
