package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hargapanel/backend/internal/analytics"
	"hargapanel/backend/internal/cache"
	"hargapanel/backend/internal/config"
	"hargapanel/backend/internal/httpapi"
	"hargapanel/backend/internal/remote"
	"hargapanel/backend/internal/remote/memory"
	pgremote "hargapanel/backend/internal/remote/postgres"
	"hargapanel/backend/internal/remote/sheets"
	"hargapanel/backend/internal/synccache"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var syncStore remote.SyncStore
	closers := make([]func() error, 0, 2)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgremote.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with a fallback store", err)
		}
		syncStore = pg
		closers = append(closers, pg.Close)
		log.Println("sync store: postgres")
	case cfg.SheetsURL != "":
		syncStore = sheets.New(cfg.SheetsURL, time.Duration(cfg.RemoteTimeoutSeconds)*time.Second)
		log.Println("sync store: google sheets")
	default:
		syncStore = memory.NewSeeded()
		log.Println("sync store: in-memory (seeded demo data)")
	}

	resultCache := cache.ResultCache(cache.NoopResultCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisResultCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			resultCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	syncCache := synccache.New(syncStore)
	engine := analytics.NewEngine(resultCache, time.Duration(cfg.AnalyticsTTLSeconds)*time.Second)
	api := httpapi.New(syncCache, engine, cfg.AllowedOrigin)

	// Warm the snapshot in the background; the first /data request
	// single-flights onto this fetch if it is still in progress.
	go syncCache.Warm(context.Background())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("pricing backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}
