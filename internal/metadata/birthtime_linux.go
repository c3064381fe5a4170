//go:build linux

package metadata

import (
	"os"
	"syscall"
	"time"
)

// birthTime returns the closest thing Linux exposes to a creation time:
// the inode status-change time. Returns the zero time when unavailable.
func birthTime(info os.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}
