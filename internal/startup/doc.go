// Package startup handles configuration loading and the boot-time
// banner. Configuration comes from environment variables with sensible
// container defaults; the library directory must already exist, while
// the cache directory is created and write-tested on demand.
package startup
