// Package editor はPDFのページ編集（回転・削除・移動・結合）と取り消し/やり直しを提供します。
package editor

import (
	"context"

	"github.com/yourusername/page-forge/internal/history"
	"github.com/yourusername/page-forge/internal/pdf"
)

// RotateStep は1回の回転操作で加える角度です。
const RotateStep = 90

// Mutator はページ操作に使うPDF変換処理です。*pdf.Service が実装します。
// どの操作も入力を変更せず、新しい文書全体を返す必要があります。
type Mutator interface {
	PageCount(ctx context.Context, data []byte) (int, error)
	Rotate(ctx context.Context, data []byte, page, delta int) ([]byte, error)
	Remove(ctx context.Context, data []byte, page int) ([]byte, error)
	Reorder(ctx context.Context, data []byte, from, to int) ([]byte, error)
	Merge(ctx context.Context, data, other []byte) ([]byte, int, error)
}

var _ Mutator = (*pdf.Service)(nil)

// Options は Session の制限値です。0 は無制限を表します。
type Options struct {
	MaxPages     int
	HistoryLimit int
}

// State は操作後に呼び出し側へ返す表示状態です。
type State struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	CanUndo       bool `json:"canUndo"`
	CanRedo       bool `json:"canRedo"`
	HistoryLength int  `json:"historyLength"`
	Cursor        int  `json:"cursor"`
}

// Session は1つの文書の編集状態（履歴と表示ページ）を保持します。
//
// Session 自体はロックを持ちません。同時に実行できる操作は1つだけなので、
// 呼び出し側で直列化してください。失敗した操作は履歴も表示状態も変更しません。
type Session struct {
	docs    Mutator
	history *history.Log
	view    View
	opts    Options
}

// NewSession は空の Session を作成します。
func NewSession(docs Mutator, opts Options) *Session {
	return &Session{
		docs:    docs,
		history: history.New(opts.HistoryLimit),
		opts:    opts,
	}
}

// Open は data を新しい文書として読み込み、これまでの履歴をすべて破棄します。
func (s *Session) Open(ctx context.Context, data []byte) (State, error) {
	total, err := s.docs.PageCount(ctx, data)
	if err != nil {
		return State{}, err
	}
	if err := s.checkLimit(total); err != nil {
		return State{}, err
	}

	s.history.Reset(data)
	s.view = Sync(total, 1)
	return s.State(), nil
}

// RotatePage は ref ページを90度回転します。
func (s *Session) RotatePage(ctx context.Context, ref int) (State, error) {
	current, err := s.current()
	if err != nil {
		return State{}, err
	}
	if err := s.checkRef(ref); err != nil {
		return State{}, err
	}

	out, err := s.docs.Rotate(ctx, current, ref, RotateStep)
	if err != nil {
		return State{}, err
	}
	return s.commit(ctx, out, s.view.Current)
}

// DeletePage は ref ページを削除します。最後の1ページは削除できません。
func (s *Session) DeletePage(ctx context.Context, ref int) (State, error) {
	current, err := s.current()
	if err != nil {
		return State{}, err
	}
	if err := s.checkRef(ref); err != nil {
		return State{}, err
	}
	if s.view.Total == 1 {
		return State{}, pdf.SinglePageError()
	}

	out, err := s.docs.Remove(ctx, current, ref)
	if err != nil {
		return State{}, err
	}
	return s.commit(ctx, out, followDelete(s.view.Current, ref))
}

// MovePage は from ページを to の位置へ移動します。from == to は何もしません。
func (s *Session) MovePage(ctx context.Context, from, to int) (State, error) {
	current, err := s.current()
	if err != nil {
		return State{}, err
	}
	if err := s.checkRef(from); err != nil {
		return State{}, err
	}
	if err := s.checkRef(to); err != nil {
		return State{}, err
	}
	if from == to {
		return s.State(), nil
	}

	out, err := s.docs.Reorder(ctx, current, from, to)
	if err != nil {
		return State{}, err
	}
	return s.commit(ctx, out, followMove(s.view.Current, from, to))
}

// AddPagesFrom は other の全ページを末尾に追加し、追加した最初のページを表示します。
func (s *Session) AddPagesFrom(ctx context.Context, other []byte) (State, error) {
	current, err := s.current()
	if err != nil {
		return State{}, err
	}

	out, added, err := s.docs.Merge(ctx, current, other)
	if err != nil {
		return State{}, err
	}
	if err := s.checkLimit(s.view.Total + added); err != nil {
		return State{}, err
	}
	return s.commit(ctx, out, s.view.Total+1)
}

// SelectPage は表示ページを ref に切り替えます。履歴は変わりません。
func (s *Session) SelectPage(ref int) (State, error) {
	if _, err := s.current(); err != nil {
		return State{}, err
	}
	if err := s.checkRef(ref); err != nil {
		return State{}, err
	}
	s.view = Sync(s.view.Total, ref)
	return s.State(), nil
}

// Undo は1つ前のスナップショットに戻ります。
func (s *Session) Undo(ctx context.Context) (State, error) {
	return s.step(ctx, -1)
}

// Redo は取り消した操作をやり直します。
func (s *Session) Redo(ctx context.Context) (State, error) {
	return s.step(ctx, 1)
}

func (s *Session) step(ctx context.Context, delta int) (State, error) {
	if _, err := s.current(); err != nil {
		return State{}, err
	}
	target, ok := s.history.Peek(delta)
	if !ok {
		return State{}, history.ErrNoHistory
	}

	// カーソルを動かす前にページ数を数え、失敗時は何も変えない
	total, err := s.docs.PageCount(ctx, target)
	if err != nil {
		return State{}, err
	}

	if delta < 0 {
		_, err = s.history.Undo()
	} else {
		_, err = s.history.Redo()
	}
	if err != nil {
		return State{}, err
	}
	s.view = Sync(total, s.view.Current)
	return s.State(), nil
}

// Export は現在の文書のバイト列を複製して返します。
func (s *Session) Export() ([]byte, error) {
	current, err := s.current()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), current...), nil
}

// Loaded は文書が読み込まれているかを返します。
func (s *Session) Loaded() bool {
	_, ok := s.history.Current()
	return ok
}

// State は現在の表示状態を返します。
func (s *Session) State() State {
	return State{
		CurrentPage:   s.view.Current,
		TotalPages:    s.view.Total,
		CanUndo:       s.history.CanUndo(),
		CanRedo:       s.history.CanRedo(),
		HistoryLength: s.history.Len(),
		Cursor:        s.history.Cursor(),
	}
}

// commit はページ数を実際の出力から数え直してから履歴に積む
func (s *Session) commit(ctx context.Context, out []byte, proposed int) (State, error) {
	total, err := s.docs.PageCount(ctx, out)
	if err != nil {
		return State{}, err
	}
	s.history.Push(out)
	s.view = Sync(total, proposed)
	return s.State(), nil
}

func (s *Session) current() ([]byte, error) {
	current, ok := s.history.Current()
	if !ok {
		return nil, ErrNoDocument
	}
	return current, nil
}

func (s *Session) checkRef(ref int) error {
	if ref < 1 || ref > s.view.Total {
		return pdf.PageRangeError(ref, s.view.Total)
	}
	return nil
}

func (s *Session) checkLimit(pages int) error {
	if s.opts.MaxPages > 0 && pages > s.opts.MaxPages {
		return pdf.LimitExceededError(pages, s.opts.MaxPages)
	}
	return nil
}
