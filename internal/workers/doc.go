// Package workers computes worker pool sizes from available CPU
// parallelism, with environment variable overrides.
package workers
