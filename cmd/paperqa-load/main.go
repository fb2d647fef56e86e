// Corpus loader for paperqa. Reads a JSONL export of papers (summary +
// chunks, optionally with precomputed embeddings), embeds whatever vectors
// are missing and writes hashes plus the FT index to Redis.
//
// Usage:
//
//	paperqa-load -file corpus.jsonl -workers 4 [-reset]
//
// Connection and provider settings come from the same YAML config as the
// server (ENV selects the file, ${VAR} expansion applies).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scholarlab/paperqa/internal/config"
	dbRedis "github.com/scholarlab/paperqa/internal/db/redis"
	"github.com/scholarlab/paperqa/internal/ingest"
	logpkg "github.com/scholarlab/paperqa/internal/logger"
	"github.com/scholarlab/paperqa/internal/metrics"
	"github.com/scholarlab/paperqa/internal/repository/corpus"
	openaiTransport "github.com/scholarlab/paperqa/internal/transport/openai"
)

type loadConfig struct {
	file    string
	workers int
	reset   bool
}

func parseFlags() loadConfig {
	cfg := loadConfig{}
	flag.StringVar(&cfg.file, "file", "", "path to the JSONL corpus export (required)")
	flag.IntVar(&cfg.workers, "workers", 4, "number of parallel ingest workers")
	flag.BoolVar(&cfg.reset, "reset", false, "drop and recreate the paper index before loading")
	flag.Parse()
	return cfg
}

func main() {
	loadCfg := parseFlags()
	if loadCfg.file == "" {
		fmt.Fprintln(os.Stderr, "usage: paperqa-load -file corpus.jsonl [-workers N] [-reset]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, loadCfg, cfg, logger); err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}
}

func run(ctx context.Context, loadCfg loadConfig, cfg config.Config, logger *zap.Logger) error {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	metrics.RegisterProviderMetrics()

	repo := corpus.New(store)
	if loadCfg.reset {
		logger.Info("Resetting paper index")
		if err := repo.ResetIndex(ctx); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
	}
	if err := repo.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	f, err := os.Open(loadCfg.file)
	if err != nil {
		return fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	logger.Info("Starting corpus load",
		zap.String("file", loadCfg.file),
		zap.Int("workers", loadCfg.workers),
	)

	ing := ingest.NewIngester(repo, embedder, loadCfg.workers, logger)
	res, err := ing.Run(ctx, f)

	logger.Info("Corpus load finished",
		zap.Int64("documents", res.Documents),
		zap.Int64("failed", res.Failed),
		zap.Int64("chunks", res.Chunks),
		zap.Int64("chunks_dropped", res.ChunksDropped),
		zap.Duration("duration", res.Duration),
	)

	if err != nil {
		return err
	}

	total, countErr := repo.Count(ctx)
	if countErr == nil {
		logger.Info("Corpus size", zap.Int("documents_indexed", total))
	}
	return nil
}
