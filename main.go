package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/ffmpeg"
	"media-indexer/internal/geo"
	"media-indexer/internal/indexer"
	"media-indexer/internal/logging"
	"media-indexer/internal/media"
	"media-indexer/internal/memory"
	"media-indexer/internal/metrics"
	"media-indexer/internal/scanner"
	"media-indexer/internal/startup"
	"media-indexer/internal/thumbnailer"
)

func main() {
	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel)

	if err := media.InitVips(); err != nil {
		logging.Fatal("libvips initialization failed: %v", err)
	}
	defer media.ShutdownVips()

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Database initialization failed: %v", err)
	}
	defer db.Close()

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		build := startup.GetBuildInfo()
		metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.GoVersion).Set(1)
		metricsSrv = metrics.Serve(config.MetricsPort)
		defer shutdownMetrics(metricsSrv)
	}

	var locator indexer.Locator
	if config.GazetteerPath != "" {
		gaz, err := geo.LoadFile(config.GazetteerPath)
		if err != nil {
			logging.Warn("Gazetteer load failed, location tagging disabled: %v", err)
		} else {
			locator = gaz
		}
	}

	invoker := ffmpeg.NewInvoker(config.ToolsDir, config.CacheDir)
	if binary, err := invoker.Binary(); err != nil {
		logging.Warn("No external decoder available, video thumbnails limited: %v", err)
	} else {
		logging.Info("External decoder: %s", binary)
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	chain := media.NewChain(invoker, config.ThumbnailSize)
	indexPipeline := indexer.New(scanner.New(config.LibraryDir), db, locator, nil)
	thumbPipeline := thumbnailer.New(db, chain, config.LibraryDir, nil, monitor)

	runOnce(ctx, db, indexPipeline, thumbPipeline)

	ticker := time.NewTicker(config.IndexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Shutdown complete")
			return
		case <-ticker.C:
			runOnce(ctx, db, indexPipeline, thumbPipeline)
		}
	}
}

// runOnce executes one index pass followed by a thumbnail pass.
func runOnce(ctx context.Context, db *database.Database, idx *indexer.Pipeline, thumbs *thumbnailer.Pipeline) {
	if ctx.Err() != nil {
		return
	}

	summary, err := idx.Run(ctx)
	if err != nil {
		logging.Error("Indexing run failed: %v", err)
		return
	}

	if counts, err := db.CountByType(ctx); err == nil {
		for assetType, n := range counts {
			metrics.LibraryAssetsTotal.WithLabelValues(string(assetType)).Set(float64(n))
		}
	}

	if summary.Status == indexer.StatusCancelled {
		return
	}

	if _, _, err := thumbs.Run(ctx); err != nil {
		logging.Error("Thumbnail run failed: %v", err)
	}
}

func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logging.Info("Received %s, shutting down...", sig)
	cancel()
}

func shutdownMetrics(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Metrics server shutdown: %v", err)
	}
}
