package sessions

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/page-forge/internal/editor"
	"github.com/yourusername/page-forge/internal/pdf"
	"github.com/yourusername/page-forge/internal/pdf/pdftest"
)

func newTestRegistry(t *testing.T, store Store) *Registry {
	t.Helper()
	svc := pdf.NewService()
	factory := func() *editor.Session {
		return editor.NewSession(svc, editor.Options{})
	}
	return NewRegistry(store, factory, log.New(io.Discard, "", 0))
}

func TestRegistryOpenAndDo(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := newTestRegistry(t, store)
	ctx := context.Background()

	id, state, err := reg.Open(ctx, "sample.pdf", pdftest.Pages(3))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if id == "" || state.TotalPages != 3 || state.CurrentPage != 1 {
		t.Fatalf("unexpected open result: id=%q state=%+v", id, state)
	}

	state, err = reg.Do(ctx, id, func(s *editor.Session) error {
		_, err := s.RotatePage(ctx, 2)
		return err
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if state.HistoryLength != 2 || !state.CanUndo {
		t.Fatalf("unexpected state after rotate: %+v", state)
	}

	record, err := store.Get(ctx, id)
	if err != nil || record == nil {
		t.Fatalf("expected stored record, got %v, %v", record, err)
	}
	if record.Filename != "sample.pdf" || record.HistoryLength != 2 || record.TotalPages != 3 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestRegistryUnknownSession(t *testing.T) {
	reg := newTestRegistry(t, NewMemoryStore(time.Minute))
	_, err := reg.Do(context.Background(), "missing", func(*editor.Session) error {
		t.Fatal("fn must not run for an unknown session")
		return nil
	})
	if !errors.Is(err, editor.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestRegistryOpenFailureKeepsPrevious(t *testing.T) {
	reg := newTestRegistry(t, NewMemoryStore(time.Minute))
	ctx := context.Background()

	id, _, err := reg.Open(ctx, "a.pdf", pdftest.Pages(2))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if _, _, err := reg.Open(ctx, "broken.pdf", []byte("not a pdf")); !errors.Is(err, pdf.ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", reg.Len())
	}
	if _, err := reg.Do(ctx, id, func(*editor.Session) error { return nil }); err != nil {
		t.Fatalf("previous session must survive a failed open: %v", err)
	}
}

func TestRegistryOpenLeavesOtherSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := newTestRegistry(t, store)
	ctx := context.Background()

	first, _, err := reg.Open(ctx, "a.pdf", pdftest.Pages(2))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	second, _, err := reg.Open(ctx, "b.pdf", pdftest.Pages(4))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh session id")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", reg.Len())
	}
	if record, _ := store.Get(ctx, first); record == nil {
		t.Fatal("opening another document must not delete the first record")
	}
}

func TestRegistryClose(t *testing.T) {
	reg := newTestRegistry(t, NewMemoryStore(time.Minute))
	ctx := context.Background()

	id, _, err := reg.Open(ctx, "a.pdf", pdftest.Pages(1))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := reg.Close(ctx, id); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := reg.Close(ctx, id); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if _, err := reg.Do(ctx, id, func(*editor.Session) error { return nil }); !errors.Is(err, editor.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument after close, got %v", err)
	}
}

func TestRegistrySweepEvictsIdle(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	reg := newTestRegistry(t, store)
	ctx := context.Background()

	idle, _, err := reg.Open(ctx, "idle.pdf", pdftest.Pages(1))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	now = now.Add(45 * time.Second)
	active, _, err := reg.Open(ctx, "active.pdf", pdftest.Pages(1))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	now = now.Add(30 * time.Second)
	evicted, err := reg.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, err := reg.Do(ctx, idle, func(*editor.Session) error { return nil }); !errors.Is(err, editor.ErrNoDocument) {
		t.Fatalf("idle session must be evicted, got %v", err)
	}
	if _, err := reg.Do(ctx, active, func(*editor.Session) error { return nil }); err != nil {
		t.Fatalf("active session must survive: %v", err)
	}
}

func TestRegistryDoSerializes(t *testing.T) {
	reg := newTestRegistry(t, NewMemoryStore(time.Minute))
	ctx := context.Background()

	id, _, err := reg.Open(ctx, "a.pdf", pdftest.Pages(2))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Do(ctx, id, func(s *editor.Session) error {
				_, err := s.RotatePage(ctx, 1)
				return err
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Do returned error: %v", err)
		}
	}

	state, err := reg.Do(ctx, id, func(*editor.Session) error { return nil })
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if state.HistoryLength != workers+1 || state.Cursor != workers {
		t.Fatalf("expected %d snapshots, got %+v", workers+1, state)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Second)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Upsert(ctx, &Record{SessionID: "s1"}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	record, _ := store.Get(ctx, "s1")
	if record == nil || !record.ExpiresAt.Equal(now.Add(10*time.Second)) {
		t.Fatalf("unexpected record: %+v", record)
	}

	now = now.Add(11 * time.Second)
	if record, _ := store.Get(ctx, "s1"); record != nil {
		t.Fatalf("expected expired record to vanish, got %+v", record)
	}
}
