package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "market_intel/internal/adapters/http_server"
	"market_intel/internal/adapters/observability"
	redisad "market_intel/internal/adapters/redis"
	"market_intel/internal/app"
	"market_intel/internal/domain"
	"market_intel/internal/shared"
	mysqlrepo "market_intel/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, observability.MetricsHandler(reg))

	var reader domain.SnapshotReader
	var cache domain.Cache
	switch cfg.DataBackend {
	case "file":
		// sources are memoized in process; a shared cache would outlive file edits
		p, props, survey, err := shared.NewPipeline(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("pipeline setup failed")
		}
		reader = app.NewLiveSnapshot(p, props, survey)
		log.Info().Str("properties", cfg.PropertiesSource).Str("survey", cfg.SurveySource).Msg("serving live sources")
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		reader = mysqlrepo.New(db)

		if cfg.RedisAddr != "" {
			rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
			if err := rc.Ping(ctx); err != nil {
				log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, serving without cache")
			} else {
				defer rc.Close()
				cache = rc
			}
		}
	}

	q := app.NewQueryService(reader, cache, cfg.CacheTTL, app.QueryOptions{
		Weighting:            cfg.Weighting,
		HotspotCount:         cfg.HotspotCount,
		MinMarketProperties:  cfg.MinMarketProperties,
		MinManagerProperties: cfg.MinManagerProperties,
	})

	// http
	srv := server.New(server.Options{RateLimit: cfg.APIRateLimit, RateBurst: cfg.APIRateBurst})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.DataBackend).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
