package thumbnailer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/mediatypes"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
}

func (s *stubGenerator) Generate(ctx context.Context, path string) []byte {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	s.mu.Lock()
	s.calls = append(s.calls, filepath.Base(path))
	s.mu.Unlock()
	return []byte("thumb:" + filepath.Base(path))
}

type progressRecorder struct {
	mu       sync.Mutex
	done     []string
	progress []int
	finished bool
}

func (r *progressRecorder) ThumbnailDone(path string, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, path)
}

func (r *progressRecorder) Progress(done, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, done)
}

func (r *progressRecorder) RunFinished(int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAssets(t *testing.T, db *database.Database, n int, kind mediatypes.AssetType) []string {
	t.Helper()
	var batch []database.Asset
	var paths []string
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("dir/file-%03d.%s", i, extFor(kind))
		paths = append(paths, path)
		batch = append(batch, database.Asset{
			Path:        path,
			Fingerprint: "fp-" + path,
			Size:        100,
			CapturedAt:  time.Now(),
			Type:        kind,
		})
	}
	if err := db.UpsertAssets(context.Background(), batch); err != nil {
		t.Fatal(err)
	}
	return paths
}

func extFor(kind mediatypes.AssetType) string {
	switch kind {
	case mediatypes.AssetTypeVideo:
		return "mp4"
	case mediatypes.AssetTypeIcon:
		return "ico"
	default:
		return "jpg"
	}
}

func TestRunGeneratesMissingThumbnails(t *testing.T) {
	db := newTestDB(t)
	paths := seedAssets(t, db, 7, mediatypes.AssetTypeImage)

	gen := &stubGenerator{}
	p := New(db, gen, "/library", nil, nil)

	generated, failed, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if generated != 7 || failed != 0 {
		t.Errorf("Run() = %d generated, %d failed, want 7/0", generated, failed)
	}

	for _, path := range paths {
		data, err := db.Thumbnail(context.Background(), path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "thumb:"+filepath.Base(path) {
			t.Errorf("thumbnail for %s = %q", path, data)
		}
	}

	// Nothing left to do on the second pass.
	generated, _, err = p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if generated != 0 {
		t.Errorf("second Run() generated %d, want 0", generated)
	}
}

func TestRunSkipsIcons(t *testing.T) {
	db := newTestDB(t)
	seedAssets(t, db, 3, mediatypes.AssetTypeIcon)
	seedAssets(t, db, 2, mediatypes.AssetTypeVideo)

	gen := &stubGenerator{}
	p := New(db, gen, "/library", nil, nil)

	generated, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if generated != 2 {
		t.Errorf("Run() generated %d, want 2 (icons excluded)", generated)
	}
	for _, call := range gen.calls {
		if filepath.Ext(call) == ".ico" {
			t.Errorf("generator was invoked for icon %s", call)
		}
	}
}

func TestRunReportsProgress(t *testing.T) {
	db := newTestDB(t)
	seedAssets(t, db, 12, mediatypes.AssetTypeImage)

	rec := &progressRecorder{}
	p := New(db, &stubGenerator{}, "/library", rec, nil)

	if _, _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.finished {
		t.Error("RunFinished was not called")
	}

	// Every stored thumbnail gets its own notification.
	if len(rec.done) != 12 {
		t.Errorf("ThumbnailDone fired %d times, want 12", len(rec.done))
	}

	seen := make(map[int]bool)
	for _, v := range rec.progress {
		seen[v] = true
	}
	// Milestones at every fifth completion plus the final one.
	for _, want := range []int{5, 10, 12} {
		if !seen[want] {
			t.Errorf("no progress notification at %d (got %v)", want, rec.progress)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	seedAssets(t, db, 20, mediatypes.AssetTypeImage)

	gen := &stubGenerator{block: make(chan struct{})}
	p := New(db, gen, "/library", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan int, 1)
	go func() {
		generated, _, _ := p.Run(ctx)
		resultCh <- generated
	}()

	cancel()

	select {
	case generated := <-resultCh:
		if generated == 20 {
			t.Error("cancelled run completed all work")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run did not return")
	}
}

func TestCancelledRunStoresNoPlaceholders(t *testing.T) {
	db := newTestDB(t)
	seedAssets(t, db, 20, mediatypes.AssetTypeImage)

	// Workers block in the generator until cancellation, then yield nil.
	gen := &stubGenerator{block: make(chan struct{})}
	p := New(db, gen, "/library", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := make(chan int, 1)
	go func() {
		generated, _, _ := p.Run(ctx)
		resultCh <- generated
	}()

	cancel()

	select {
	case generated := <-resultCh:
		if generated != 0 {
			t.Errorf("cancelled run stored %d thumbnails, want 0", generated)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run did not return")
	}

	// Every asset must still be pending for the next run.
	missing, err := db.AssetsMissingThumbnail(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 20 {
		t.Errorf("%d assets still missing thumbnails after cancel, want 20", len(missing))
	}
}

func TestRunHonorsRescanFlag(t *testing.T) {
	db := newTestDB(t)
	seedAssets(t, db, 3, mediatypes.AssetTypeImage)

	gen := &stubGenerator{}
	p := New(db, gen, "/library", nil, nil)

	if _, _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := db.SetFlag(context.Background(), database.FlagThumbnailScanRequired, true); err != nil {
		t.Fatal(err)
	}

	generated, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if generated != 3 {
		t.Errorf("rescan run generated %d thumbnails, want 3", generated)
	}

	set, err := db.Flag(context.Background(), database.FlagThumbnailScanRequired)
	if err != nil {
		t.Fatal(err)
	}
	if set {
		t.Error("rescan flag still raised after the run")
	}
}
