// Command reset-thumbs is a maintenance tool that clears every stored
// thumbnail in a catalog so the next run of the indexer regenerates
// them all. Useful after changing THUMBNAIL_SIZE or upgrading the
// decode chain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"media-indexer/internal/database"
)

const defaultTimeout = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "/cache"
	}
	dbPath := filepath.Join(cacheDir, "catalog.db")
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open catalog: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	opCtx, opCancel := context.WithTimeout(ctx, defaultTimeout)
	defer opCancel()

	cleared, err := db.ResetThumbnails(opCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to reset thumbnails: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Cleared %d thumbnails in %s\n", cleared, dbPath)
	fmt.Println("Run the indexer to regenerate them.")
}
