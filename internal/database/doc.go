// Package database manages the SQLite catalog backing the indexer.
//
// The catalog holds one row per asset keyed by its library-relative
// path, carrying the content fingerprint, capture date, classified type
// and the thumbnail JPEG blob. Tags attach to assets through a junction
// table with per-link confidence, and a single-row metadata table tracks
// the schema version plus rescan flags.
//
// All write paths used by the indexing pipeline go through a single
// writer goroutine (see the indexer package), so the methods here do not
// serialize writes themselves beyond SQLite's own locking.
package database
