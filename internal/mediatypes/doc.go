// Package mediatypes defines the media classification used across the
// indexing and thumbnail pipelines: asset types, per-class extension
// allow-sets, and the complex-image family that needs special decoders.
package mediatypes
