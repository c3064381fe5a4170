package media

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder labels for assets no decoder could render.
const (
	PlaceholderVideo = "VIDEO"
	PlaceholderImage = "N/A"
)

var (
	placeholderBackground = color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}
	placeholderForeground = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
)

// Placeholder renders a square JPEG tile carrying a short label and the
// asset's file name. It cannot fail: encoding an in-memory RGBA image
// into a buffer has no error paths that can trigger here.
func Placeholder(label, path string, size int) []byte {
	if size <= 0 {
		size = 256
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{placeholderBackground}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawCentered(img, face, label, size/2-face.Height)

	name := truncateLabel(filepath.Base(path), size/face.Advance-2)
	drawCentered(img, face, name, size/2+face.Height)

	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
	return buf.Bytes()
}

func drawCentered(img *image.RGBA, face *basicfont.Face, text string, y int) {
	width := len(text) * face.Advance
	x := (img.Bounds().Dx() - width) / 2
	if x < 0 {
		x = 0
	}
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{placeholderForeground},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func truncateLabel(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
