package media

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// embeddedScanLimit bounds how much of a video file is searched for an
// embedded preview image. Container metadata with cover art sits near
// the start of the file.
const embeddedScanLimit = 16 * 1024 * 1024

var errNoEmbeddedPreview = errors.New("no embedded preview image found")

var (
	jpegSOI = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI = []byte{0xFF, 0xD9}
)

// renderEmbeddedPreview scans the head of a video file for an embedded
// JPEG (cover art or a container preview) and renders it as a thumbnail.
// This runs before the external decoder: when a preview is present it
// avoids spawning a subprocess entirely.
func renderEmbeddedPreview(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, embeddedScanLimit))
	if err != nil {
		return nil, err
	}

	candidate := extractEmbeddedJPEG(head)
	if candidate == nil {
		return nil, errNoEmbeddedPreview
	}

	img, err := imaging.Decode(bytes.NewReader(candidate), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("embedded preview decode failed: %w", err)
	}

	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// extractEmbeddedJPEG returns the first complete JPEG byte range in
// data, or nil when none exists.
func extractEmbeddedJPEG(data []byte) []byte {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		return nil
	}
	end := bytes.LastIndex(data[start:], jpegEOI)
	if end < 0 {
		return nil
	}
	return data[start : start+end+len(jpegEOI)]
}
