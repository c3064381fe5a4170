package mediatypes

import (
	"path/filepath"
	"strings"
)

// AssetType classifies an indexed media file.
type AssetType string

const (
	// AssetTypeImage represents a photo or other standalone picture.
	AssetTypeImage AssetType = "image"
	// AssetTypeVideo represents a video file.
	AssetTypeVideo AssetType = "video"
	// AssetTypeIcon represents an icon, logo or other UI artwork.
	AssetTypeIcon AssetType = "icon"
	// AssetTypeUnknown represents an unrecognized file type.
	AssetTypeUnknown AssetType = "unknown"
)

// ImageExtensions maps file extensions to whether they are indexed as images.
// Camera-RAW variants are included; whether they can be decoded in-process
// is a concern of the thumbnail chain, not the scanner.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".img":  true,
	".heic": true,
	".heif": true,
	".avif": true,
	".raw":  true,
	".cr2":  true,
	".cr3":  true,
	".nef":  true,
	".arw":  true,
	".dng":  true,
	".orf":  true,
	".rw2":  true,
	".raf":  true,
}

// VideoExtensions maps file extensions to whether they are indexed as videos.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".flv":  true,
	".wmv":  true,
}

// IconExtensions maps file extensions to whether they are indexed as icons.
var IconExtensions = map[string]bool{
	".ico":  true,
	".icns": true,
	".svg":  true,
}

// complexImageExtensions are image formats the standard in-process decoders
// cannot handle; the thumbnail chain routes these through libvips and the
// external decoder.
var complexImageExtensions = map[string]bool{
	".heic": true,
	".heif": true,
	".avif": true,
	".raw":  true,
	".cr2":  true,
	".cr3":  true,
	".nef":  true,
	".arw":  true,
	".dng":  true,
	".orf":  true,
	".rw2":  true,
	".raf":  true,
}

// Ext returns the lowercase extension (with leading dot) of a file name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// TypeForExt returns the AssetType for a given file extension. The
// extension should be lowercase and include the leading dot (e.g. ".jpg").
// Icon extensions win over image extensions.
func TypeForExt(ext string) AssetType {
	if IconExtensions[ext] {
		return AssetTypeIcon
	}
	if VideoExtensions[ext] {
		return AssetTypeVideo
	}
	if ImageExtensions[ext] {
		return AssetTypeImage
	}
	return AssetTypeUnknown
}

// TypeForPath returns the AssetType of a path based on its extension.
func TypeForPath(path string) AssetType {
	return TypeForExt(Ext(path))
}

// IsComplexImage reports whether the extension belongs to the RAW/HEIC
// family that needs the native or external decoder.
func IsComplexImage(ext string) bool {
	return complexImageExtensions[ext]
}

// IsMediaFile reports whether the extension is in any configured allow-set.
func IsMediaFile(ext string) bool {
	return TypeForExt(ext) != AssetTypeUnknown
}
