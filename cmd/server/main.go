package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Clark-Hu/rating-pulse/internal/changefeed"
	"github.com/Clark-Hu/rating-pulse/internal/config"
	httpserver "github.com/Clark-Hu/rating-pulse/internal/http"
	"github.com/Clark-Hu/rating-pulse/internal/repository"
	"github.com/Clark-Hu/rating-pulse/internal/store"
	"github.com/Clark-Hu/rating-pulse/internal/stream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "[ratings-api] ", log.LstdFlags|log.Lshortfile)

	if cfg.DBAutoMigrate {
		if err := store.Migrate(cfg.DBURL, logger); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()
	prometheus.MustRegister(st.Collector())

	repo := repository.New(st)
	hub := stream.NewHub()

	source := changefeed.NewPGSource(st.Pool(), time.Duration(cfg.ChangeFeedRetryMs)*time.Millisecond, logger)
	watcher := changefeed.NewWatcher(source, repo.Ratings, hub, logger)
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("changefeed: watcher stopped: %v", err)
		}
	}()

	server := httpserver.New(cfg, st, repo, hub, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			log.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("graceful shutdown error: %v", err)
	}
	stop()
	<-watcherDone
}
