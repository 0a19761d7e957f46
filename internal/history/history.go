// Package history は編集履歴（PDFスナップショットの線形ログ）を管理します。
package history

import "errors"

// ErrNoHistory は取り消し・やり直しの境界に達しているときに返されます。
var ErrNoHistory = errors.New("history: no more entries")

// Log はスナップショット列とカーソルを保持します。
// カーソル位置のスナップショットが現在の文書です。空のときカーソルは -1 です。
//
// Log は並行利用を想定していません。呼び出し側で直列化してください。
type Log struct {
	entries [][]byte
	cursor  int
	limit   int
}

// New は空の Log を作成します。limit が正なら保持件数の上限になり、古いものから捨てます。
func New(limit int) *Log {
	if limit < 0 {
		limit = 0
	}
	return &Log{cursor: -1, limit: limit}
}

// Reset はログ全体を破棄し、initial だけを持つ状態にします。
func (l *Log) Reset(initial []byte) {
	l.entries = [][]byte{clone(initial)}
	l.cursor = 0
}

// Push はカーソル以降を切り捨ててから data の複製を末尾に追加し、カーソルを進めます。
func (l *Log) Push(data []byte) {
	// 切り捨てたやり直し分を配列に残さない
	tail := l.entries[l.cursor+1:]
	for i := range tail {
		tail[i] = nil
	}
	l.entries = append(l.entries[:l.cursor+1], clone(data))
	l.cursor = len(l.entries) - 1

	if l.limit > 0 && len(l.entries) > l.limit {
		drop := len(l.entries) - l.limit
		// 捨てた分の参照を残さない
		for i := 0; i < drop; i++ {
			l.entries[i] = nil
		}
		l.entries = l.entries[drop:]
		l.cursor -= drop
	}
}

// Undo はカーソルを1つ戻し、その位置のスナップショットを返します。
func (l *Log) Undo() ([]byte, error) {
	if !l.CanUndo() {
		return nil, ErrNoHistory
	}
	l.cursor--
	return l.entries[l.cursor], nil
}

// Redo はカーソルを1つ進め、その位置のスナップショットを返します。
func (l *Log) Redo() ([]byte, error) {
	if !l.CanRedo() {
		return nil, ErrNoHistory
	}
	l.cursor++
	return l.entries[l.cursor], nil
}

// Current はカーソル位置のスナップショットを返します。空なら ok は false です。
// 返り値は履歴が所有しているため、呼び出し側で書き換えてはいけません。
func (l *Log) Current() ([]byte, bool) {
	if l.cursor < 0 {
		return nil, false
	}
	return l.entries[l.cursor], true
}

// Peek はカーソルから delta 離れた位置のスナップショットをカーソルを動かさずに返します。
func (l *Log) Peek(delta int) ([]byte, bool) {
	i := l.cursor + delta
	if l.cursor < 0 || i < 0 || i >= len(l.entries) {
		return nil, false
	}
	return l.entries[i], true
}

func (l *Log) CanUndo() bool { return l.cursor > 0 }

func (l *Log) CanRedo() bool { return l.cursor >= 0 && l.cursor < len(l.entries)-1 }

// Len は保持しているスナップショット数を返します。
func (l *Log) Len() int { return len(l.entries) }

// Cursor は現在位置を返します。空なら -1 です。
func (l *Log) Cursor() int { return l.cursor }

func clone(data []byte) []byte {
	return append([]byte(nil), data...)
}
