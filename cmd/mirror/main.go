package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"pixiv_mirror/internal/blackhole"
	"pixiv_mirror/internal/config"
	"pixiv_mirror/internal/fetch"
	"pixiv_mirror/internal/manifest"
	"pixiv_mirror/internal/migurdia"
	"pixiv_mirror/internal/pipeline"
	"pixiv_mirror/internal/scheduler"
	"pixiv_mirror/internal/source/pixiv"
	"pixiv_mirror/internal/thumbnail"
	"pixiv_mirror/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	authorsPath := flag.String("authors", "", "optional JSON file with author ids, overrides config")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	authorIDs := cfg.Pixiv.AuthorIDs
	if *authorsPath != "" {
		authorIDs, err = loadAuthorIDs(*authorsPath)
		if err != nil {
			logger.Error("failed to load author ids", "error", err)
			os.Exit(1)
		}
	}
	if len(authorIDs) == 0 {
		logger.Error("no author ids supplied")
		os.Exit(1)
	}

	// Unique per-run staging directory; failure manifests live here too, so
	// the directory is left in place after the run.
	stagingDir := filepath.Join(cfg.Staging.BaseDir, "staging-"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		logger.Error("failed to create staging directory", "error", err)
		os.Exit(1)
	}
	logger.Info("created staging directory", "path", stagingDir)

	// One connection-capped client shared by every remote call.
	httpClient := transport.NewLimitedClient(cfg.Pipeline.MaxConnections, cfg.Download.Timeout)

	pixivClient := pixiv.NewClient(httpClient, pixiv.Config{
		BaseURL:      cfg.Pixiv.BaseURL,
		AuthURL:      cfg.Pixiv.AuthURL,
		RefreshToken: cfg.Pixiv.RefreshToken,
	}, logger)

	blobClient := blackhole.NewClient(httpClient, blackhole.Config{
		BaseURL:       cfg.BlackHole.BaseURL,
		PublicBaseURL: cfg.BlackHole.PublicBaseURL,
	}, logger)

	indexClient := migurdia.NewClient(httpClient, migurdia.Config{
		BaseURL:  cfg.Migurdia.BaseURL,
		Username: cfg.Migurdia.Username,
		Password: cfg.Migurdia.Password,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := pixivClient.Authenticate(ctx); err != nil {
		logger.Error("source authentication failed", "error", err)
		os.Exit(1)
	}
	if err := indexClient.Login(ctx); err != nil {
		logger.Error("content index login failed", "error", err)
		os.Exit(1)
	}
	if err := blobClient.CreateSession(ctx); err != nil {
		logger.Error("blob store session failed", "error", err)
		os.Exit(1)
	}
	defer blobClient.Close()

	fetcher := fetch.New(httpClient, fetch.Config{
		StagingDir:  stagingDir,
		MaxAttempts: cfg.Download.MaxAttempts,
		BackoffMin:  cfg.Download.BackoffMin,
		BackoffMax:  cfg.Download.BackoffMax,
		Referer:     "https://www.pixiv.net/",
	}, logger)

	thumbs := thumbnail.NewCreator(logger)
	uploader := pipeline.NewUploadCoordinator(blobClient, indexClient, logger)
	assets := pipeline.NewAssetPipeline(fetcher, thumbs, uploader, logger)
	manifests := manifest.NewStore(stagingDir, logger)
	fanout := pipeline.NewFanOut(assets, manifests, logger)

	sched := scheduler.New(
		func(authorID int64) scheduler.PostSource { return pixivClient.Illusts(authorID) },
		fanout,
		cfg.Pipeline.BatchSize,
		logger,
	)

	logger.Info("starting mirror run",
		"authors", len(authorIDs),
		"batch_size", cfg.Pipeline.BatchSize,
		"max_connections", cfg.Pipeline.MaxConnections,
	)

	stats, err := sched.Run(ctx, authorIDs)
	if err != nil && err != context.Canceled {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run completed",
		"authors", stats.Authors,
		"posts", stats.Posts,
		"assets_uploaded", stats.AssetsUploaded,
		"assets_failed", stats.AssetsFailed,
		"manifests_written", stats.ManifestsWritten,
	)
}

func loadAuthorIDs(path string) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
