// Package jobs は期限切れ編集セッションの定期掃除を Asynq で実行します。
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/page-forge/internal/config"
)

const (
	taskTypeSweep = "sessions:sweep"
	queueName     = "maintenance"
)

// Sweeper は期限切れセッションを破棄します。*sessions.Registry が実装します。
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Manager は掃除タスクの定期投入と実行を担います。
type Manager struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	sweeper   Sweeper
	logger    *log.Logger
}

// NewManager は Manager を初期化します。cfg.SessionRedisURL が必須です。
func NewManager(cfg *config.Config, sweeper Sweeper, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if sweeper == nil {
		return nil, errors.New("sweeper is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	opt, err := asynq.ParseRedisURI(cfg.SessionRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	interval := cfg.SweepInterval()
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	task := asynq.NewTask(taskTypeSweep, nil)
	if _, err := scheduler.Register(sweepSpec(interval), task,
		asynq.Queue(queueName),
		asynq.MaxRetry(0),
		asynq.Timeout(interval),
	); err != nil {
		return nil, fmt.Errorf("failed to register sweep task: %w", err)
	}

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		scheduler: scheduler,
		server:    server,
		mux:       mux,
		sweeper:   sweeper,
		logger:    logger,
	}
	mux.HandleFunc(taskTypeSweep, manager.handleSweepTask)
	return manager, nil
}

// Start はスケジューラーとワーカーをバックグラウンドで起動します。
func (m *Manager) Start() error {
	if err := m.server.Start(m.mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}
	if err := m.scheduler.Start(); err != nil {
		m.server.Shutdown()
		return fmt.Errorf("failed to start asynq scheduler: %w", err)
	}
	return nil
}

// Shutdown はスケジューラーとワーカーを停止します。
func (m *Manager) Shutdown() {
	m.scheduler.Shutdown()
	m.server.Shutdown()
}

func (m *Manager) handleSweepTask(ctx context.Context, task *asynq.Task) error {
	started := time.Now()
	evicted, err := m.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("session sweep failed: %w", err)
	}
	if evicted > 0 {
		m.logger.Printf("session sweep evicted=%d took=%s", evicted, time.Since(started))
	}
	return nil
}

func sweepSpec(interval time.Duration) string {
	return "@every " + interval.String()
}
