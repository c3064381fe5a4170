package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"media-indexer/internal/database"
	"media-indexer/internal/scanner"
)

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

type recordingEvents struct {
	mu      sync.Mutex
	indexed []string
	skipped []string
	failed  []string
}

func (r *recordingEvents) FileIndexed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, path)
}

func (r *recordingEvents) FileSkipped(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, path)
}

func (r *recordingEvents) FileFailed(path string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, path)
}

func TestRunIndexesNewFiles(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "2021/a.jpg", "jpeg-content-a")
	writeFile(t, lib, "2021/b.mp4", "video-content-b")
	writeFile(t, lib, "notes.txt", "not media")

	db := newTestDB(t)
	events := &recordingEvents{}
	p := New(scanner.New(lib), db, nil, events)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", summary.Status)
	}
	if summary.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", summary.Indexed)
	}
	if summary.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2 (txt is not media)", summary.Scanned)
	}

	fps, err := db.LoadFingerprints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fps) != 2 {
		t.Errorf("catalog has %d assets, want 2", len(fps))
	}
	if len(events.indexed) != 2 {
		t.Errorf("events.indexed = %v, want 2 entries", events.indexed)
	}
}

func TestCompletedRunClearsRescanFlag(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "a.jpg", "content-a")

	db := newTestDB(t)
	if err := db.SetFlag(context.Background(), database.FlagScanRequired, true); err != nil {
		t.Fatal(err)
	}

	p := New(scanner.New(lib), db, nil, nil)
	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Status != StatusCompleted {
		t.Fatalf("Status = %s, want completed", summary.Status)
	}

	set, err := db.Flag(context.Background(), database.FlagScanRequired)
	if err != nil {
		t.Fatal(err)
	}
	if set {
		t.Error("rescan flag still raised after a completed run")
	}
}

func TestRescanSkipsUnchangedFiles(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "a.jpg", "content-a")
	writeFile(t, lib, "b.jpg", "content-b")

	db := newTestDB(t)
	p := New(scanner.New(lib), db, nil, nil)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.Indexed != 0 {
		t.Errorf("second run Indexed = %d, want 0", summary.Indexed)
	}
	if summary.Skipped != 2 {
		t.Errorf("second run Skipped = %d, want 2", summary.Skipped)
	}
}

func TestChangedFileIsReindexed(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "a.jpg", "original content")

	db := newTestDB(t)
	p := New(scanner.New(lib), db, nil, nil)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	writeFile(t, lib, "a.jpg", "rewritten with different bytes")

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Indexed != 1 || summary.Skipped != 0 {
		t.Errorf("after change: Indexed = %d, Skipped = %d, want 1/0",
			summary.Indexed, summary.Skipped)
	}
}

func TestCompletedRunRemovesOrphans(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "keep.jpg", "keep")
	writeFile(t, lib, "gone.jpg", "gone")

	db := newTestDB(t)
	p := New(scanner.New(lib), db, nil, nil)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(lib, "gone.jpg")); err != nil {
		t.Fatal(err)
	}

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Removed != 1 {
		t.Errorf("Removed = %d, want 1", summary.Removed)
	}

	fps, err := db.LoadFingerprints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fps["gone.jpg"]; ok {
		t.Error("orphaned asset still in catalog")
	}
	if _, ok := fps["keep.jpg"]; !ok {
		t.Error("surviving asset was removed")
	}
}

func TestCancelledRunKeepsOrphans(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "a.jpg", "content")

	db := newTestDB(t)
	p := New(scanner.New(lib), db, nil, nil)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// The file disappears, but the next run is cancelled before it can
	// prove anything about the library, so the record must survive.
	if err := os.Remove(filepath.Join(lib, "a.jpg")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("cancelled Run() error = %v", err)
	}
	if summary.Status != StatusCancelled {
		t.Errorf("Status = %s, want cancelled", summary.Status)
	}

	fps, err := db.LoadFingerprints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fps["a.jpg"]; !ok {
		t.Error("asset removed by a cancelled run")
	}
}

func TestUnreadableFileCountsAsError(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, lib, "ok.jpg", "fine")
	// A dangling symlink passes the walk but fails to open.
	if err := os.Symlink(filepath.Join(lib, "missing-target"), filepath.Join(lib, "broken.jpg")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	db := newTestDB(t)
	events := &recordingEvents{}
	p := New(scanner.New(lib), db, nil, events)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Indexed != 1 {
		t.Errorf("Indexed = %d, want 1", summary.Indexed)
	}
	if len(events.failed) != 1 {
		t.Errorf("events.failed = %v, want one entry", events.failed)
	}
}
