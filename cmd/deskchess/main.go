package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/deskchess/deskchess/internal/config"
	"github.com/deskchess/deskchess/internal/obslog"
	"github.com/deskchess/deskchess/internal/registry"
	"github.com/deskchess/deskchess/internal/server"
	"github.com/deskchess/deskchess/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml")
	flag.Parse()

	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	obslog.Init(cfg.LogLevel, cfg.LogFormat)
	defer obslog.Sync()
	logger := obslog.L()

	var store registry.Store
	if cfg.RedisURL != "" {
		store, err = registry.NewRedisStore(cfg.RedisURL, cfg.SessionTTL())
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
		logger.Info("session registry on redis")
	} else {
		store = registry.NewMemoryStore(cfg.SessionTTL())
		logger.Info("session registry in memory")
	}
	defer func() { _ = store.Close() }()

	mgr := session.NewManager(store, session.ManagerConfig{
		TimeControls:       cfg.TimeControls,
		DefaultTimeControl: cfg.DefaultTimeControl,
		TickInterval:       time.Second,
	}, logger)
	defer mgr.CloseAll()

	srv := server.New(cfg.Listen, mgr, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Fatal("server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
