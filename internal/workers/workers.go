package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the worker count for a given task type. It respects
// container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// envVar, when non-empty, names an environment variable that overrides the
// computed count. The limit parameter caps the worker count; use 0 for no
// limit.
func Count(multiplier float64, limit int, envVar string) int {
	if envVar != "" {
		if override := os.Getenv(envVar); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				return clamp(count, limit)
			}
		}
	}

	available := runtime.GOMAXPROCS(0)
	count := int(float64(available) * multiplier)
	if count < 1 {
		count = 1
	}
	return clamp(count, limit)
}

// ForScan returns the worker count for the scan/enrich pool: one per CPU,
// overridable with INDEX_WORKERS.
func ForScan() int {
	return Count(1.0, 0, "INDEX_WORKERS")
}

// ForThumbnails returns the worker count for the thumbnail pool:
// min(limit, CPUs-1), never less than one, overridable with
// THUMBNAIL_WORKERS.
func ForThumbnails(limit int) int {
	count := runtime.GOMAXPROCS(0) - 1
	if count < 1 {
		count = 1
	}
	if override := os.Getenv("THUMBNAIL_WORKERS"); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			count = n
		}
	}
	return clamp(count, limit)
}

func clamp(count, limit int) int {
	if limit > 0 && count > limit {
		return limit
	}
	return count
}
