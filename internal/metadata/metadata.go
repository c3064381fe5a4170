// Package metadata extracts capture dates and GPS coordinates from media
// files, with filesystem fallbacks when embedded metadata is missing or
// unreadable.
package metadata

import (
	"math"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"media-indexer/internal/logging"
)

// iso6709Pattern matches coordinate strings embedded in textual metadata,
// e.g. "+48.8566+002.3522/" as written by QuickTime/MP4 containers.
var iso6709Pattern = regexp.MustCompile(`([+-]\d+\.?\d*)\s*([+-]\d+\.?\d*)`)

// CaptureDate resolves the best available capture time for a file:
// embedded DateTimeOriginal first, then the filesystem creation time,
// then the modification time. Failures fall through silently.
func CaptureDate(path string) time.Time {
	if f, err := os.Open(path); err == nil {
		x, err := exif.Decode(f)
		f.Close()
		if err == nil {
			if dt, err := x.DateTime(); err == nil {
				return dt
			}
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		logging.Warn("Failed to stat %s for capture date: %v", path, err)
		return time.Now()
	}

	if birth := birthTime(info); !birth.IsZero() {
		return birth
	}
	return info.ModTime()
}

// Location extracts GPS coordinates from a file's embedded metadata.
// A structured EXIF GPS block is preferred; failing that, every textual
// field is scanned for an ISO-6709 coordinate pair. Near-zero coordinates
// are rejected as default/missing GPS data.
func Location(path string) (lat, lon float64, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, 0, false
	}

	if lat, lon, err := x.LatLong(); err == nil && validCoordinates(lat, lon) {
		return lat, lon, true
	}

	w := &coordinateScanner{}
	if err := x.Walk(w); err != nil {
		logging.Debug("Metadata walk failed for %s: %v", path, err)
	}
	if w.found {
		return w.lat, w.lon, true
	}
	return 0, 0, false
}

// ParseISO6709 extracts and validates a coordinate pair from a textual
// metadata value. ok is false when no valid pair is present.
func ParseISO6709(value string) (lat, lon float64, ok bool) {
	m := iso6709Pattern.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	if !validCoordinates(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

// validCoordinates checks range and rejects the (0, 0) island that
// cameras write when GPS data is absent.
func validCoordinates(lat, lon float64) bool {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	if math.Abs(lat) < 0.0001 && math.Abs(lon) < 0.0001 {
		return false
	}
	return true
}

// coordinateScanner walks every decoded metadata field looking for an
// embedded ISO-6709 pair. The first valid pair wins.
type coordinateScanner struct {
	lat   float64
	lon   float64
	found bool
}

func (c *coordinateScanner) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if c.found {
		return nil
	}
	if lat, lon, ok := ParseISO6709(tag.String()); ok {
		c.lat, c.lon, c.found = lat, lon, true
	}
	return nil
}
