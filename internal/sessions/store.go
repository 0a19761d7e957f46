package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "editor:session:"
)

// Store はセッション記録を有効期限付きで保存します。
// 期限切れまたは存在しない記録に対して Get は (nil, nil) を返します。
type Store interface {
	Get(ctx context.Context, sessionID string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore はセッション記録を Redis に保存します。期限はキーのTTLで管理します。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
		now: time.Now,
	}
}

// Get はセッション記録を取得します。
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert はセッション記録を保存し、TTLを延長します。
func (s *RedisStore) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	stamp(record, s.now().UTC(), s.ttl)

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(record.SessionID), payload, s.ttl).Err()
}

// Delete はセッション記録を削除します。
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

// MemoryStore はプロセス内にセッション記録を保持します。Redis を使わない開発環境向けです。
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[sessionID]
	if !ok {
		return nil, nil
	}
	if !record.ExpiresAt.IsZero() && s.now().After(record.ExpiresAt) {
		delete(s.records, sessionID)
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(record, s.now().UTC(), s.ttl)
	s.records[record.SessionID] = *record
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

// stamp は無操作タイムアウトの起点を更新する
func stamp(record *Record, now time.Time, ttl time.Duration) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if ttl > 0 {
		record.ExpiresAt = now.Add(ttl)
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
