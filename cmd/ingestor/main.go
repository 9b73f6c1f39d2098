package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"market_intel/internal/adapters/observability"
	redisad "market_intel/internal/adapters/redis"
	"market_intel/internal/app"
	"market_intel/internal/domain"
	"market_intel/internal/shared"
	mysqlrepo "market_intel/internal/storage/mysql"
)

func main() {
	force := flag.Bool("force", false, "store a new snapshot even when the sources are unchanged")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("properties", cfg.PropertiesSource).
		Str("survey", cfg.SurveySource).
		Str("weighting", string(cfg.Weighting)).
		Dur("interval", cfg.IngestInterval).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	repo := mysqlrepo.New(db)

	// the API caches whole snapshot tables; without Redis there is nothing to evict
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, cache will not be evicted")
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	p, props, survey, err := shared.NewPipeline(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline setup failed")
	}
	ing := app.NewIngestionService(app.NewLiveSnapshot(p, props, survey), repo, cache)

	if cfg.IngestInterval <= 0 {
		run, stored, err := ing.Ingest(ctx, *force)
		if err != nil {
			log.Fatal().Err(err).Msg("ingest failed")
		}
		log.Info().Str("run_id", run.RunID).Bool("stored", stored).Msg("ingestion completed")
		return
	}

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, observability.MetricsHandler(reg))
	if *force {
		if _, _, err := ing.Ingest(ctx, true); err != nil {
			log.Error().Err(err).Msg("forced ingest failed")
		}
	}
	if err := ing.Watch(ctx, cfg.IngestInterval); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("watch stopped")
	}
	log.Info().Msg("ingestor stopped")
}
