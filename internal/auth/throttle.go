package auth

import (
	"sync"
	"time"
)

// loginThrottle はクライアントIPごとのログイン失敗回数を数え、上限に達したら一定時間締め出します。
type loginThrottle struct {
	mu       sync.Mutex
	window   time.Duration
	lockout  time.Duration
	limit    int
	failures map[string]*failureWindow
}

type failureWindow struct {
	count       int
	since       time.Time
	lockedUntil time.Time
}

func newLoginThrottle(window, lockout time.Duration, limit int) *loginThrottle {
	return &loginThrottle{
		window:   window,
		lockout:  lockout,
		limit:    limit,
		failures: make(map[string]*failureWindow),
	}
}

// retryAfter は締め出し中なら残り時間を、そうでなければ 0 を返す
func (t *loginThrottle) retryAfter(ip string, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.failures[ip]
	if !ok || !now.Before(w.lockedUntil) {
		return 0
	}
	return w.lockedUntil.Sub(now)
}

// fail は失敗を1回記録し、締め出しまでに残っている試行回数を返す
func (t *loginThrottle) fail(ip string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.failures[ip]
	if !ok || now.Sub(w.since) > t.window {
		w = &failureWindow{since: now}
		t.failures[ip] = w
	}

	if w.count < t.limit {
		w.count++
	}
	if w.count == t.limit {
		w.lockedUntil = now.Add(t.lockout)
	}
	return t.limit - w.count
}

func (t *loginThrottle) reset(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, ip)
}
