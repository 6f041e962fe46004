package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/agentic-chess/core/internal/config"
	"github.com/agentic-chess/core/internal/daily"
	"github.com/agentic-chess/core/internal/engine"
	"github.com/agentic-chess/core/internal/gateway"
	"github.com/agentic-chess/core/internal/live"
	"github.com/agentic-chess/core/internal/obslog"
	"github.com/agentic-chess/core/internal/progress"
	"github.com/agentic-chess/core/internal/puzzle"
	"github.com/agentic-chess/core/internal/sched"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	// Redis when configured, local compressed snapshot otherwise.
	var persister progress.Persister
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		persister, err = progress.NewRedisPersister(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("redis init error", zap.Error(err))
		}
		logger.Info("state_backend", zap.String("kind", "redis"))
	} else {
		persister, err = progress.NewFilePersister(cfg.StateFile)
		if err != nil {
			logger.Fatal("state file init error", zap.Error(err))
		}
		logger.Info("state_backend", zap.String("kind", "file"), zap.String("path", cfg.StateFile))
	}
	defer func() { _ = persister.Close() }()

	store := progress.NewStore(persister)

	selector, err := engine.NewSelector(cfg.PersonaFile)
	if err != nil {
		logger.Fatal("persona init error", zap.Error(err))
	}

	difficulty, err := puzzle.ParseDifficulty(cfg.DefaultDifficulty)
	if err != nil {
		logger.Fatal("difficulty config error", zap.Error(err))
	}
	catalog, err := puzzle.LoadCatalog()
	if err != nil {
		logger.Fatal("puzzle catalogue error", zap.Error(err))
	}
	trainer, err := puzzle.NewTrainer(catalog, store, difficulty)
	if err != nil {
		logger.Fatal("puzzle trainer init error", zap.Error(err))
	}

	scheduler := sched.New()
	arena := live.NewArena(store, selector, scheduler, cfg.LiveReplyDelay)
	dailies := daily.NewCoordinator(store, selector, scheduler, cfg.DailyReplyDelay)

	server := gateway.NewServer(arena, dailies, trainer, store)
	go func() {
		if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
			logger.Fatal("gateway error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	scheduler.CancelAll()
	arena.Shutdown()
	if err := server.Shutdown(); err != nil {
		logger.Warn("gateway shutdown error", zap.Error(err))
	}
}
