//go:build !linux && !darwin

package metadata

import (
	"os"
	"time"
)

// birthTime reports no creation time on platforms without a portable
// source for it; callers fall back to the modification time.
func birthTime(info os.FileInfo) time.Time {
	return time.Time{}
}
