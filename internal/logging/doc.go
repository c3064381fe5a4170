// Package logging provides leveled logging for the indexer.
//
// The level is read once from the LOG_LEVEL environment variable
// (debug, info, warn, error); DEBUG=true forces debug output.
package logging
