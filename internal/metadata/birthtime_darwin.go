//go:build darwin

package metadata

import (
	"os"
	"syscall"
	"time"
)

// birthTime returns the file birth time macOS records at creation.
// Returns the zero time when unavailable.
func birthTime(info os.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}
	}
	return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
}
