package indexer

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"media-indexer/internal/database"
	"media-indexer/internal/fingerprint"
	"media-indexer/internal/geo"
	"media-indexer/internal/logging"
	"media-indexer/internal/media"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metadata"
	"media-indexer/internal/metrics"
	"media-indexer/internal/scanner"
	"media-indexer/internal/workers"
)

const (
	// queueSize bounds the asset queue between the scan workers and
	// the database writer.
	queueSize = 10000

	// batchSize is how many assets the writer commits per transaction.
	batchSize = 100
)

// Status describes how an indexing run ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Summary reports the outcome of one indexing run.
type Summary struct {
	Status   Status
	Scanned  int
	Indexed  int
	Skipped  int
	Removed  int64
	Errors   int
	Duration time.Duration
}

// Locator resolves GPS coordinates to a place name. *geo.Gazetteer
// satisfies it.
type Locator interface {
	NearestCity(lat, lon float64) string
}

// Events receives per-file notifications during a run. All methods are
// called from scan worker goroutines and must be safe for concurrent
// use.
type Events interface {
	FileIndexed(path string)
	FileSkipped(path string)
	FileFailed(path string, err error)
}

// NopEvents ignores all notifications.
type NopEvents struct{}

func (NopEvents) FileIndexed(string)       {}
func (NopEvents) FileSkipped(string)       {}
func (NopEvents) FileFailed(string, error) {}

// Pipeline indexes one media library into the catalog.
type Pipeline struct {
	scanner *scanner.Scanner
	db      *database.Database
	locator Locator
	events  Events
}

// New builds a Pipeline. locator may be nil when no gazetteer is
// loaded; events may be nil.
func New(sc *scanner.Scanner, db *database.Database, locator Locator, events Events) *Pipeline {
	if events == nil {
		events = NopEvents{}
	}
	return &Pipeline{scanner: sc, db: db, locator: locator, events: events}
}

// queued pairs an asset with the place name resolved from its GPS
// coordinates, attached as a tag after the asset row is written.
type queued struct {
	asset    database.Asset
	location string
}

// Run executes one full indexing pass. It always returns a Summary;
// the error is non-nil only when the run could not start or the
// database failed outright.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	logging.Info("Starting indexing scan on: %s", p.scanner.Root())

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)

	summary := Summary{Status: StatusFailed}
	finish := func() Summary {
		summary.Duration = time.Since(start)
		metrics.IndexerRunsTotal.WithLabelValues(string(summary.Status)).Inc()
		metrics.IndexerLastRunTimestamp.SetToCurrentTime()
		metrics.IndexerLastRunDuration.Set(summary.Duration.Seconds())
		logging.Info("Indexing %s: %d scanned, %d indexed, %d skipped, %d removed, %d errors in %v",
			summary.Status, summary.Scanned, summary.Indexed, summary.Skipped,
			summary.Removed, summary.Errors, summary.Duration.Round(time.Millisecond))
		return summary
	}

	existing, err := p.db.LoadFingerprints(ctx)
	if err != nil {
		logging.Error("Cannot load existing fingerprints, aborting run: %v", err)
		return finish(), err
	}
	logging.Debug("Loaded %d existing fingerprints", len(existing))

	queue := make(chan queued, queueSize)

	var writerWG sync.WaitGroup
	var writerStats struct {
		sync.Mutex
		indexed int
		errors  int
	}
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		indexed, errs := p.writeLoop(queue)
		writerStats.Lock()
		writerStats.indexed = indexed
		writerStats.errors = errs
		writerStats.Unlock()
	}()

	var mu sync.Mutex
	found := make(map[string]struct{})

	g, scanCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForScan())

	walkErr := p.scanner.Walk(scanCtx, func(relPath string, info fs.FileInfo) error {
		mu.Lock()
		summary.Scanned++
		found[relPath] = struct{}{}
		previous, known := existing[relPath]
		mu.Unlock()

		g.Go(func() error {
			if err := scanCtx.Err(); err != nil {
				return err
			}
			p.processFile(scanCtx, relPath, info, previous, known, queue, &mu, &summary)
			return nil
		})
		return nil
	})

	poolErr := g.Wait()
	close(queue)
	writerWG.Wait()

	writerStats.Lock()
	summary.Indexed = writerStats.indexed
	summary.Errors += writerStats.errors
	writerStats.Unlock()

	cancelled := ctx.Err() != nil ||
		errors.Is(walkErr, context.Canceled) || errors.Is(poolErr, context.Canceled) ||
		errors.Is(walkErr, context.DeadlineExceeded) || errors.Is(poolErr, context.DeadlineExceeded)

	if cancelled {
		// A partial scan must never trigger orphan cleanup: files the
		// walk never reached would look deleted.
		logging.Warn("Indexing run cancelled, skipping orphan cleanup")
		summary.Status = StatusCancelled
		return finish(), nil
	}

	if walkErr != nil {
		logging.Error("Library walk failed: %v", walkErr)
		return finish(), walkErr
	}

	removed, err := p.db.RemoveAssetsNotIn(ctx, found)
	if err != nil {
		logging.Error("Orphan cleanup failed: %v", err)
		summary.Errors++
	} else {
		summary.Removed = removed
		metrics.IndexerOrphansRemoved.Add(float64(removed))
	}

	// A full uncancelled pass satisfies any pending rescan request.
	if err := p.db.SetFlag(ctx, database.FlagScanRequired, false); err != nil {
		logging.Warn("Clearing rescan flag failed: %v", err)
	}

	summary.Status = StatusCompleted
	return finish(), nil
}

// processFile fingerprints one file and, when new or changed, enriches
// it with capture date, type classification and location before
// queueing it for the writer.
func (p *Pipeline) processFile(ctx context.Context, relPath string, info fs.FileInfo,
	previous string, known bool, queue chan<- queued, mu *sync.Mutex, summary *Summary) {

	absPath := filepath.Join(p.scanner.Root(), relPath)

	fp, err := fingerprint.Compute(absPath)
	if err != nil {
		logging.Warn("Fingerprinting %s failed: %v", relPath, err)
		metrics.IndexerErrors.Inc()
		mu.Lock()
		summary.Errors++
		mu.Unlock()
		p.events.FileFailed(relPath, err)
		return
	}

	if known && previous == fp {
		mu.Lock()
		summary.Skipped++
		mu.Unlock()
		metrics.IndexerFilesSkipped.Inc()
		p.events.FileSkipped(relPath)
		return
	}

	asset := database.Asset{
		Path:        relPath,
		Fingerprint: fp,
		Size:        info.Size(),
		CapturedAt:  metadata.CaptureDate(absPath),
		Type:        p.classify(absPath, info),
	}

	var location string
	if asset.Type != mediatypes.AssetTypeIcon && p.locator != nil {
		if lat, lon, ok := metadata.Location(absPath); ok {
			if city := p.locator.NearestCity(lat, lon); city != geo.Unknown {
				location = city
			}
		}
	}

	select {
	case queue <- queued{asset: asset, location: location}:
		metrics.IndexerFilesProcessed.Inc()
		p.events.FileIndexed(relPath)
	case <-ctx.Done():
	}
}

// classify determines the asset type, demoting small or synthetic
// pictures to icons.
func (p *Pipeline) classify(absPath string, info fs.FileInfo) mediatypes.AssetType {
	kind := mediatypes.TypeForPath(absPath)
	if kind == mediatypes.AssetTypeImage && media.IsLikelyIcon(absPath, info.Size()) {
		return mediatypes.AssetTypeIcon
	}
	return kind
}

// writeLoop is the single database writer. It drains the queue in
// batches of batchSize, committing each batch in one transaction and
// flushing whatever remains when the queue closes.
func (p *Pipeline) writeLoop(queue <-chan queued) (indexed, errs int) {
	batch := make([]queued, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		assets := make([]database.Asset, len(batch))
		for i, q := range batch {
			assets[i] = q.asset
		}

		// The writer must survive cancellation to flush in-flight
		// batches, so it uses its own context.
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := p.db.UpsertAssets(ctx, assets); err != nil {
			logging.Error("Batch write of %d assets failed: %v", len(assets), err)
			errs += len(assets)
		} else {
			indexed += len(assets)
			p.tagLocations(ctx, batch)
		}
		batch = batch[:0]
	}

	for item := range queue {
		batch = append(batch, item)
		metrics.DBQueueDepth.Set(float64(len(queue)))
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()
	metrics.DBQueueDepth.Set(0)
	return indexed, errs
}

// tagLocations attaches location tags for a batch that was just
// committed.
func (p *Pipeline) tagLocations(ctx context.Context, batch []queued) {
	for _, q := range batch {
		if q.location == "" {
			continue
		}
		tag, err := p.db.GetOrCreateTag(ctx, q.location, database.TagKindLocation)
		if err != nil {
			logging.Warn("Creating location tag %q failed: %v", q.location, err)
			continue
		}
		if err := p.db.LinkAssetTag(ctx, q.asset.Path, tag.ID, 1.0); err != nil {
			logging.Warn("Linking location tag to %s failed: %v", q.asset.Path, err)
		}
	}
}
