package media

import (
	"context"
	"errors"
	"path/filepath"

	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
)

// Decoder produces a single resized JPEG frame with an external binary.
// *ffmpeg.Invoker satisfies it.
type Decoder interface {
	DecodeImage(ctx context.Context, path string, targetWidth int) ([]byte, error)
	DecodeVideoFrame(ctx context.Context, path string, targetWidth int) ([]byte, error)
}

// Strategy is one named decode attempt. Strategies for an asset run in
// order until one yields image bytes.
type Strategy struct {
	Name   string
	Render func(ctx context.Context, path string) ([]byte, error)
}

// Chain generates thumbnail JPEG bytes for any media file. When every
// decode strategy errors out, a placeholder tile is returned instead
// of an error; only a cancelled context produces no bytes at all.
type Chain struct {
	size    int
	decoder Decoder
}

// NewChain builds a Chain producing thumbnails bounded by size pixels
// on the long edge. decoder may be nil, in which case the external
// binary strategies are skipped.
func NewChain(decoder Decoder, size int) *Chain {
	if size <= 0 {
		size = 256
	}
	return &Chain{size: size, decoder: decoder}
}

// Size returns the configured thumbnail edge length.
func (c *Chain) Size() int {
	return c.size
}

// Generate renders thumbnail bytes for the file at path. Every asset
// class tries its in-process strategies first and reaches for the
// external binary only when those fail. The returned slice is never
// empty, except that a cancelled context yields nil: cancellation is
// not a decode failure and must not brand the asset with a placeholder.
func (c *Chain) Generate(ctx context.Context, path string) []byte {
	kind := mediatypes.TypeForPath(path)

	var strategies []Strategy
	var placeholderLabel string

	switch {
	case kind == mediatypes.AssetTypeVideo:
		strategies = c.videoStrategies()
		placeholderLabel = PlaceholderVideo
	case mediatypes.IsComplexImage(mediatypes.Ext(path)):
		strategies = c.complexImageStrategies()
		placeholderLabel = PlaceholderImage
	default:
		strategies = c.imageStrategies()
		placeholderLabel = PlaceholderImage
	}

	for _, s := range strategies {
		if ctx.Err() != nil {
			return nil
		}
		data, err := s.Render(ctx, path)
		if err == nil && len(data) > 0 {
			return data
		}
		if !errors.Is(err, errNoEmbeddedPreview) {
			logging.Debug("Strategy %s failed for %s: %v", s.Name, filepath.Base(path), err)
		}
		metrics.DecodeFallbacks.WithLabelValues(s.Name).Inc()
	}
	if ctx.Err() != nil {
		return nil
	}

	logging.Warn("All decode strategies failed for %s, using placeholder", filepath.Base(path))
	metrics.PlaceholderThumbnails.Inc()
	return Placeholder(placeholderLabel, path, c.size)
}

func (c *Chain) imageStrategies() []Strategy {
	strategies := []Strategy{
		{Name: "imaging", Render: func(_ context.Context, path string) ([]byte, error) {
			return renderWithImaging(path, c.size)
		}},
		{Name: "vips", Render: func(_ context.Context, path string) ([]byte, error) {
			return renderWithVips(path, c.size)
		}},
	}
	return c.appendExternal(strategies, false)
}

func (c *Chain) complexImageStrategies() []Strategy {
	// vips handles HEIC/AVIF when built with the right loaders.
	strategies := []Strategy{
		{Name: "vips", Render: func(_ context.Context, path string) ([]byte, error) {
			return renderWithVips(path, c.size)
		}},
	}
	return c.appendExternal(strategies, false)
}

func (c *Chain) videoStrategies() []Strategy {
	strategies := []Strategy{
		{Name: "embedded-preview", Render: func(_ context.Context, path string) ([]byte, error) {
			return renderEmbeddedPreview(path, c.size)
		}},
	}
	return c.appendExternal(strategies, true)
}

// appendExternal adds the external-binary strategy last; the
// subprocess is the most expensive attempt in any chain.
func (c *Chain) appendExternal(strategies []Strategy, video bool) []Strategy {
	if c.decoder == nil {
		return strategies
	}
	render := func(ctx context.Context, path string) ([]byte, error) {
		return c.decoder.DecodeImage(ctx, path, c.size)
	}
	if video {
		render = func(ctx context.Context, path string) ([]byte, error) {
			return c.decoder.DecodeVideoFrame(ctx, path, c.size)
		}
	}
	return append(strategies, Strategy{Name: "external", Render: render})
}
