package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lysyi3m/opportunity-comb/app/api"
	"github.com/lysyi3m/opportunity-comb/app/cache"
	"github.com/lysyi3m/opportunity-comb/app/cfg"
	"github.com/lysyi3m/opportunity-comb/app/database"
	"github.com/lysyi3m/opportunity-comb/app/dataset"
	"github.com/lysyi3m/opportunity-comb/app/feed"
	"github.com/lysyi3m/opportunity-comb/app/notify"
	"github.com/lysyi3m/opportunity-comb/app/tasks"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(2)
	}
	if appCfg == nil {
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if appCfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg); err != nil {
		log.Error().Err(err).Str("command", appCfg.Command).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg *cfg.Cfg) error {
	log.Info().Str("version", appCfg.Version).Str("command", appCfg.Command).Str("data_dir", appCfg.DataDir).Msg("Starting opportunity-comb")

	if appCfg.Command == cfg.CommandServe {
		return serve(ctx, appCfg)
	}

	var exporter tasks.DatasetExporter
	if appCfg.DBPath != "" && (appCfg.Command == cfg.CommandMerge || appCfg.Command == cfg.CommandRun) {
		db, err := database.Open(ctx, appCfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open export database: %w", err)
		}
		defer db.Close()
		exporter = database.NewExporter(database.NewOpportunityRepository(db), database.NewRunRepository(db))
	}

	var notifier notify.Notifier = notify.Nop{}
	if appCfg.Command == cfg.CommandMerge || appCfg.Command == cfg.CommandRun {
		notifier = notify.New(appCfg.NATSURL, appCfg.NATSSubject)
		defer notifier.Close()
	}

	pipeline, err := newPipeline(appCfg, exporter, notifier)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	mergeRequest := tasks.MergeRequest{
		Since:   appCfg.Since,
		Options: dataset.MergeOptions{PreserveCreatedAt: appCfg.PreserveCreatedAt},
	}

	switch appCfg.Command {
	case cfg.CommandFetch:
		_, err = pipeline.Fetch(ctx, now)
	case cfg.CommandNormalize:
		day := appCfg.Date
		if day == "" {
			day = now.Format(cfg.DayLayout)
		}
		_, err = pipeline.Normalize(ctx, day, now)
	case cfg.CommandMerge:
		_, err = pipeline.Merge(ctx, mergeRequest)
	case cfg.CommandRun:
		err = pipeline.Run(ctx, mergeRequest, now)
	default:
		err = fmt.Errorf("unknown command %q", appCfg.Command)
	}

	return err
}

func newPipeline(appCfg *cfg.Cfg, exporter tasks.DatasetExporter, notifier notify.Notifier) (*tasks.Pipeline, error) {
	sourceCache := feed.NewSourceCache(appCfg.SourcesFile)

	// merge only reads batches, so a missing sources file is not fatal there.
	if appCfg.Command != cfg.CommandMerge {
		if err := sourceCache.Run(); err != nil {
			return nil, fmt.Errorf("failed to load sources: %w", err)
		}
		log.Info().Int("sources", sourceCache.GetSourceCount()).Int("enabled", len(sourceCache.GetEnabledSources())).Msg("Loaded sources")
	}

	return tasks.NewPipeline(tasks.PipelineConfig{
		SourceCache:      sourceCache,
		Snapshots:        feed.NewSnapshots(appCfg.RawDir),
		Batches:          dataset.NewBatchStore(appCfg.NormalizedDir),
		Normalizer:       feed.NewNormalizer(feed.NewParser(), feed.NewExtractor()),
		Filterer:         feed.NewFilterer(),
		ContentExtractor: feed.NewContentExtractor(),
		HTTPClient:       &http.Client{Timeout: 2 * time.Minute},
		Runner:           tasks.NewPool(appCfg.WorkerCount, tasks.DefaultTaskTimeout),
		UserAgent:        appCfg.UserAgent,
		LatestDir:        appCfg.LatestDir,
		Exporter:         exporter,
		Notifier:         notifier,
	}), nil
}

func serve(ctx context.Context, appCfg *cfg.Cfg) error {
	db, err := database.Open(ctx, appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var feedCache cache.CacheInterface
	if appCfg.CacheTTL > 0 {
		feedCache = cache.New(ctx, appCfg.RedisURL, 64, time.Duration(appCfg.CacheTTL)*time.Second)
		defer feedCache.Close()
	}

	handler := api.NewHandler(
		database.NewOpportunityRepository(db),
		database.NewRunRepository(db),
		feed.NewGenerator(),
		feedCache,
		api.HandlerConfig{
			BaseURL:  appCfg.BaseURL,
			FeedSize: appCfg.FeedSize,
			CacheTTL: time.Duration(appCfg.CacheTTL) * time.Second,
			Version:  appCfg.Version,
		},
	)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Str("port", appCfg.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}
