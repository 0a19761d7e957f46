package pdf

import (
	"context"
	"io"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Remove は指定ページを取り除いたPDFを返します。
// 1ページしかない文書には SinglePageError を返し、変換は行いません。
func (s *Service) Remove(ctx context.Context, data []byte, page int) ([]byte, error) {
	total, err := s.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := checkPageRef(page, total); err != nil {
		return nil, err
	}
	if total == 1 {
		return nil, SinglePageError()
	}

	return s.transform(data, "ページの削除に失敗しました。", func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return pdfapi.RemovePages(rs, w, []string{strconv.Itoa(page)}, conf)
	})
}
