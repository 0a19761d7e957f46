package pdf

import (
	"bytes"
	"context"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Merge は data の末尾に other の全ページを元の順序で追加したPDFと、追加したページ数を返します。
func (s *Service) Merge(ctx context.Context, data, other []byte) ([]byte, int, error) {
	if _, err := s.PageCount(ctx, data); err != nil {
		return nil, 0, err
	}
	added, err := s.PageCount(ctx, other)
	if err != nil {
		return nil, 0, err
	}

	merged, err := s.transform(data, "PDFの結合に失敗しました。", func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return pdfapi.MergeRaw([]io.ReadSeeker{rs, bytes.NewReader(other)}, w, false, conf)
	})
	if err != nil {
		return nil, 0, err
	}
	return merged, added, nil
}
