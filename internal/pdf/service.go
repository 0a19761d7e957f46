// Package pdf は pdfcpu を用いたページ単位のPDF変換を提供します。
//
// すべての操作は入力バイト列を変更せず、新しいPDF全体のバイト列を返します。
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const corruptMessage = "PDFの読み込みに失敗しました。ファイルが破損していないか確認してください。"

var disableConfigDir sync.Once

// Service は PDF 変換処理の入口です。状態を持たないため並行利用できます。
type Service struct{}

// NewService は Service を作成します。
func NewService() *Service {
	// pdfcpu がユーザー設定ディレクトリを作らないようにする
	disableConfigDir.Do(pdfapi.DisableConfigDir)
	return &Service{}
}

// pdfcpu は呼び出しごとに conf.Cmd を書き換えるため、毎回新しい設定を作る
func (s *Service) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount はPDFを検証し、ページ数を返します。
func (s *Service) PageCount(ctx context.Context, data []byte) (int, error) {
	pdfCtx, err := s.read(ctx, data)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

func (s *Service) read(ctx context.Context, data []byte) (*model.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, newError(CodeCorruptDocument, "PDFデータが空です。", nil)
	}

	pdfCtx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(data), s.configuration())
	if err != nil {
		return nil, newError(CodeCorruptDocument, corruptMessage, err)
	}
	if pdfCtx.PageCount <= 0 {
		return nil, newError(CodeCorruptDocument, "PDFにページが含まれていません。", nil)
	}
	return pdfCtx, nil
}

type transformFunc func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error

// transform は入力を読み取り専用リーダーで渡し、出力を新しいバッファに書き出す
func (s *Service) transform(data []byte, failMessage string, fn transformFunc) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(bytes.NewReader(data), &buf, s.configuration()); err != nil {
		return nil, newError(CodeCorruptDocument, failMessage, err)
	}
	return buf.Bytes(), nil
}

func checkPageRef(ref, total int) error {
	if ref < 1 || ref > total {
		return PageRangeError(ref, total)
	}
	return nil
}

func cloneBytes(data []byte) []byte {
	return append([]byte(nil), data...)
}

func pageRangeMessage(ref, total int) string {
	return fmt.Sprintf("ページ番号 %d は範囲外です (1-%d)。", ref, total)
}

func limitMessage(pages, limit int) string {
	return fmt.Sprintf("ページ数が上限を超えています (%d / 上限 %d)。", pages, limit)
}
