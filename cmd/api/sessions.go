package main

import (
	"context"
	"fmt"
	"log"
	"os"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/page-forge/internal/config"
	"github.com/yourusername/page-forge/internal/editor"
	"github.com/yourusername/page-forge/internal/jobs"
	"github.com/yourusername/page-forge/internal/pdf"
	"github.com/yourusername/page-forge/internal/sessions"
)

// setupSessions は編集セッションの保持先と掃除の仕組みを用意します。
// SESSION_REDIS_URL が空の場合はメモリ保持とティッカーによる掃除になります。
func setupSessions(ctx context.Context, cfg *config.Config, pdfService *pdf.Service) (*sessions.Registry, func(), error) {
	factory := func() *editor.Session {
		return editor.NewSession(pdfService, editor.Options{
			MaxPages:     cfg.MaxPages,
			HistoryLimit: cfg.HistoryLimit,
		})
	}
	logger := log.New(os.Stderr, "[sessions] ", log.LstdFlags)

	if cfg.SessionRedisURL == "" {
		registry := sessions.NewRegistry(sessions.NewMemoryStore(cfg.SessionIdleTTL()), factory, logger)
		registry.StartJanitor(ctx, cfg.SweepInterval())
		logger.Printf("using in-memory session store (idle=%s)", cfg.SessionIdleTTL())
		return registry, func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.SessionRedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	registry := sessions.NewRegistry(sessions.NewRedisStore(redisClient, cfg.SessionIdleTTL()), factory, logger)
	manager, err := jobs.NewManager(cfg, registry, logger)
	if err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	if err := manager.Start(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}

	logger.Printf("using redis session store (idle=%s, sweep=%s)", cfg.SessionIdleTTL(), cfg.SweepInterval())
	shutdown := func() {
		manager.Shutdown()
		if err := redisClient.Close(); err != nil {
			logger.Printf("failed to close redis client: %v", err)
		}
	}
	return registry, shutdown, nil
}
