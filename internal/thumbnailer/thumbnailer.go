// Package thumbnailer runs the background thumbnail generation pass. It
// lists assets without a stored thumbnail, renders each one through a
// generator (normally the media decode chain) on a small worker pool,
// and stores the result back into the catalog.
package thumbnailer

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"media-indexer/internal/database"
	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
	"media-indexer/internal/workers"
)

// maxWorkers caps the pool; thumbnail decoding is memory hungry.
const maxWorkers = 4

// progressInterval is how many completions pass between progress
// notifications.
const progressInterval = 5

// Generator renders thumbnail bytes for one file. A nil result means
// the context was cancelled mid-decode; any other outcome must yield a
// non-empty slice. *media.Chain satisfies it.
type Generator interface {
	Generate(ctx context.Context, path string) []byte
}

// Events receives notifications from a run. ThumbnailDone fires once
// per stored thumbnail, Progress every few completions. Methods are
// called from worker goroutines.
type Events interface {
	ThumbnailDone(path string, done, total int)
	Progress(done, total int)
	RunFinished(generated, failed int)
}

// NopEvents ignores all notifications.
type NopEvents struct{}

func (NopEvents) ThumbnailDone(string, int, int) {}
func (NopEvents) Progress(int, int)              {}
func (NopEvents) RunFinished(int, int)           {}

// Gate blocks workers while the process is under memory pressure.
// *memory.Monitor satisfies it.
type Gate interface {
	WaitIfPaused() bool
}

// Pipeline generates missing thumbnails for one library.
type Pipeline struct {
	db        *database.Database
	generator Generator
	root      string
	events    Events
	gate      Gate
}

// New builds a Pipeline. root is the library directory that asset
// paths are relative to; events and gate may be nil.
func New(db *database.Database, generator Generator, root string, events Events, gate Gate) *Pipeline {
	if events == nil {
		events = NopEvents{}
	}
	return &Pipeline{db: db, generator: generator, root: root, events: events, gate: gate}
}

// Run generates thumbnails for every asset missing one. It returns how
// many thumbnails were stored and how many assets failed. Cancellation
// stops scheduling new work; results already stored stay stored.
func (p *Pipeline) Run(ctx context.Context) (generated, failed int, err error) {
	if err := p.resetIfRescanRequested(ctx); err != nil {
		return 0, 0, err
	}

	paths, err := p.db.AssetsMissingThumbnail(ctx)
	if err != nil {
		return 0, 0, err
	}
	total := len(paths)
	if total == 0 {
		logging.Info("No assets need thumbnails")
		return 0, 0, nil
	}

	poolSize := workers.ForThumbnails(maxWorkers)
	logging.Info("Generating thumbnails for %d assets with %d workers", total, poolSize)

	metrics.ThumbnailGeneratorRunning.Set(1)
	defer metrics.ThumbnailGeneratorRunning.Set(0)

	var mu sync.Mutex
	done := 0

	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)

	for _, path := range paths {
		path := path
		if runCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if p.gate != nil && !p.gate.WaitIfPaused() {
				return nil
			}
			start := time.Now()
			data := p.generator.Generate(runCtx, filepath.Join(p.root, path))
			metrics.ThumbnailDuration.Observe(time.Since(start).Seconds())

			if len(data) == 0 {
				// Cancelled mid-decode. The asset keeps its NULL
				// thumbnail and is picked up again on the next run.
				return nil
			}

			storeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			storeErr := p.db.UpdateThumbnail(storeCtx, path, data)

			mu.Lock()
			done++
			if storeErr != nil {
				failed++
				logging.Warn("Storing thumbnail for %s failed: %v", path, storeErr)
				metrics.ThumbnailFailures.Inc()
			} else {
				generated++
				metrics.ThumbnailsGenerated.Inc()
			}
			current := done
			mu.Unlock()

			if storeErr == nil {
				p.events.ThumbnailDone(path, current, total)
			}
			if current%progressInterval == 0 || current == total {
				logging.Info("Thumbnail progress: %d/%d", current, total)
				p.events.Progress(current, total)
			}
			return nil
		})
	}

	if waitErr := g.Wait(); waitErr != nil && ctx.Err() == nil {
		err = waitErr
	}

	logging.Info("Thumbnail run finished: %d generated, %d failed", generated, failed)
	p.events.RunFinished(generated, failed)
	return generated, failed, err
}

// resetIfRescanRequested honors the thumbnail rescan flag in the
// catalog: stored thumbnails are cleared so the pass that follows
// regenerates every one, then the flag is lowered.
func (p *Pipeline) resetIfRescanRequested(ctx context.Context) error {
	rescan, err := p.db.Flag(ctx, database.FlagThumbnailScanRequired)
	if err != nil || !rescan {
		return err
	}

	cleared, err := p.db.ResetThumbnails(ctx)
	if err != nil {
		return err
	}
	logging.Info("Thumbnail rescan requested, cleared %d stored thumbnails", cleared)

	return p.db.SetFlag(ctx, database.FlagThumbnailScanRequired, false)
}
