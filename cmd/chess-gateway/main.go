package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-gateway/internal/config"
	"github.com/park285/chess-gateway/internal/gateway"
	"github.com/park285/chess-gateway/internal/obslog"
	"github.com/park285/chess-gateway/internal/preset"
	"github.com/park285/chess-gateway/internal/session"
	"github.com/park285/chess-gateway/internal/uci"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath:         cfg.StockfishPath,
		PerProfileCapacity: cfg.EnginePoolCapacity,
	})
	if err != nil {
		log.Fatalf("engine pool init error: %v", err)
	}

	factory := func(ctx context.Context) (session.Searcher, error) {
		return uci.NewPoolSearcher(pool, uci.Options{
			Threads:            cfg.EngineThreads,
			HashMB:             cfg.EngineHashMB,
			SkillLevel:         cfg.DefaultSkillLevel,
			MinThinkMillis:     cfg.DefaultMinThinkMS,
			MoveOverheadMillis: cfg.MoveOverheadMillis,
		}), nil
	}

	manager, err := session.NewManager(factory,
		time.Duration(cfg.SessionIdleTTLMS)*time.Millisecond, logger)
	if err != nil {
		log.Fatalf("session manager init error: %v", err)
	}

	catalog, err := preset.New(cfg.PresetOverrideDir)
	if err != nil {
		log.Fatalf("preset catalog init error: %v", err)
	}

	srv, err := gateway.NewServer(manager, catalog, session.Config{
		SkillLevel:     cfg.DefaultSkillLevel,
		MinThinkMillis: cfg.DefaultMinThinkMS,
	}, logger)
	if err != nil {
		log.Fatalf("gateway init error: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.GatewayAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("gateway_shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("gateway_listen_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Warn("gateway_shutdown_error", zap.Error(err))
	}
	if err := manager.Close(); err != nil {
		logger.Warn("session_manager_close_error", zap.Error(err))
	}
	if err := pool.Close(); err != nil {
		logger.Warn("engine_pool_close_error", zap.Error(err))
	}
}
