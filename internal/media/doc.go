// Package media turns asset files into thumbnail JPEG bytes. It layers
// several decoders (libvips, pure-Go imaging, the external ffmpeg binary,
// and an embedded-preview scan for videos) behind a single Chain that
// always produces an image, falling back to a generated placeholder when
// every decoder fails.
package media
