package media

import (
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// IsLikelyIcon reports whether an image file is probably an icon, logo
// or other UI asset rather than a photo. Criteria:
//   - very small file size (< 20KB)
//   - small dimensions (<= 256x256)
//   - extreme or exactly-square aspect ratio
//   - meaningful transparency (photos usually have none)
func IsLikelyIcon(path string, size int64) bool {
	if size < 20*1024 {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return false
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width == 0 || height == 0 {
		return false
	}

	if width <= 256 && height <= 256 {
		return true
	}

	// Standard photos sit between 1:2 and 2:1 and are never exactly
	// square at full resolution.
	ratio := float64(width) / float64(height)
	if ratio > 3.0 || ratio < 0.33 || width == height {
		return true
	}

	// Even a large image with transparency is likely an asset or logo.
	return transparencyPercentage(img) > 1.0
}

// transparencyPercentage measures how much of the image is not fully
// opaque. Large images are sampled on a stride of 10 in each dimension.
func transparencyPercentage(img image.Image) float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	step := 1
	if width*height > 1_000_000 {
		step = 10
	}

	var total, transparent int64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			_, _, _, a := img.At(x, y).RGBA()
			// Alpha below ~98% opacity counts as transparent.
			if a < 0xFAFA {
				transparent++
			}
			total++
		}
	}

	if total == 0 {
		return 0
	}
	return float64(transparent) / float64(total) * 100.0
}
