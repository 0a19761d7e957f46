package jobs

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yourusername/page-forge/internal/config"
)

type stubSweeper struct {
	calls   int
	evicted int
	err     error
}

func (s *stubSweeper) Sweep(ctx context.Context) (int, error) {
	s.calls++
	return s.evicted, s.err
}

func TestHandleSweepTask(t *testing.T) {
	sweeper := &stubSweeper{evicted: 2}
	m := &Manager{sweeper: sweeper, logger: log.New(io.Discard, "", 0)}

	if err := m.handleSweepTask(context.Background(), asynq.NewTask(taskTypeSweep, nil)); err != nil {
		t.Fatalf("handleSweepTask returned error: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", sweeper.calls)
	}
}

func TestHandleSweepTaskError(t *testing.T) {
	boom := errors.New("redis down")
	m := &Manager{sweeper: &stubSweeper{err: boom}, logger: log.New(io.Discard, "", 0)}

	err := m.handleSweepTask(context.Background(), asynq.NewTask(taskTypeSweep, nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSweepSpec(t *testing.T) {
	if got := sweepSpec(90 * time.Second); got != "@every 1m30s" {
		t.Fatalf("unexpected cron spec: %s", got)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, &stubSweeper{}, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewManager(&config.Config{SessionRedisURL: "redis://localhost:6379"}, nil, nil); err == nil {
		t.Fatal("expected error for nil sweeper")
	}
	if _, err := NewManager(&config.Config{SessionRedisURL: "::not-a-url"}, &stubSweeper{}, nil); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
