package sessions

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/page-forge/internal/editor"
)

// Factory は新しい空の編集セッションを作成します。
type Factory func() *editor.Session

type entry struct {
	mu        sync.Mutex
	session   *editor.Session
	filename  string
	createdAt time.Time
}

// Registry はセッションIDごとに editor.Session を保持し、操作を1つずつ実行します。
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	store   Store
	factory Factory
	logger  *log.Logger
	newID   func() string
}

// NewRegistry は Registry を作成します。logger が nil の場合は標準エラーに出力します。
func NewRegistry(store Store, factory Factory, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(os.Stderr, "[sessions] ", log.LstdFlags)
	}
	return &Registry{
		entries: make(map[string]*entry),
		store:   store,
		factory: factory,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

var _ editor.Registry = (*Registry)(nil)

// Open は data を新しいセッションで開きます。読み込みに失敗した場合は何も登録しません。
// 既存のセッションには触れないため、置き換える場合は呼び出し側で Close してください。
func (r *Registry) Open(ctx context.Context, filename string, data []byte) (string, editor.State, error) {
	session := r.factory()
	state, err := session.Open(ctx, data)
	if err != nil {
		return "", editor.State{}, err
	}

	id := r.newID()
	e := &entry{session: session, filename: filename, createdAt: time.Now().UTC()}

	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()

	if err := r.store.Upsert(ctx, newRecord(id, e, state)); err != nil {
		r.remove(id)
		return "", editor.State{}, fmt.Errorf("failed to save session record: %w", err)
	}

	r.logger.Printf("session opened: id=%s file=%q pages=%d", id, filename, state.TotalPages)
	return id, state, nil
}

// Do はセッションのロックを取得して fn を実行し、実行後の状態を返します。
// 未登録または期限切れのIDには editor.ErrNoDocument を返します。
func (r *Registry) Do(ctx context.Context, id string, fn func(*editor.Session) error) (editor.State, error) {
	e := r.lookup(id)
	if e == nil {
		return editor.State{}, editor.ErrNoDocument
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// 待機中に掃除された場合
	if r.lookup(id) != e {
		return editor.State{}, editor.ErrNoDocument
	}

	if err := fn(e.session); err != nil {
		return editor.State{}, err
	}

	state := e.session.State()
	if err := r.store.Upsert(ctx, newRecord(id, e, state)); err != nil {
		r.logger.Printf("failed to refresh session record %s: %v", id, err)
	}
	return state, nil
}

// Close はセッションを破棄します。存在しないIDはエラーになりません。
func (r *Registry) Close(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	r.remove(id)
	return r.store.Delete(ctx, id)
}

// Sweep は記録が期限切れになったセッションを破棄し、破棄した件数を返します。
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	evicted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		record, err := r.store.Get(ctx, id)
		if err != nil {
			r.logger.Printf("failed to load session record %s: %v", id, err)
			continue
		}
		if record != nil {
			continue
		}
		r.remove(id)
		evicted++
	}

	if evicted > 0 {
		r.logger.Printf("swept %d idle session(s)", evicted)
	}
	return evicted, nil
}

// StartJanitor は ctx が終了するまで interval ごとに Sweep を実行します。
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
					r.logger.Printf("session sweep failed: %v", err)
				}
			}
		}
	}()
}

// Len は保持しているセッション数を返します。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) lookup(id string) *entry {
	if id == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func newRecord(id string, e *entry, state editor.State) *Record {
	return &Record{
		SessionID:     id,
		Filename:      e.filename,
		CreatedAt:     e.createdAt,
		CurrentPage:   state.CurrentPage,
		TotalPages:    state.TotalPages,
		HistoryLength: state.HistoryLength,
		Cursor:        state.Cursor,
	}
}
