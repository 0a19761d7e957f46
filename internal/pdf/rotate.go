package pdf

import (
	"context"
	"fmt"
	"io"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Rotate は指定ページの回転角に delta 度を加えたPDFを返します。
// delta は90の倍数のみ受け付けます。ページ数は変わりません。
func (s *Service) Rotate(ctx context.Context, data []byte, page, delta int) ([]byte, error) {
	if delta%90 != 0 {
		return nil, newError(CodeInvalidInput, fmt.Sprintf("回転角は90度単位で指定してください (received: %d)。", delta), nil)
	}

	total, err := s.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := checkPageRef(page, total); err != nil {
		return nil, err
	}

	rotation := normalizeRotation(delta)
	if rotation == 0 {
		return cloneBytes(data), nil
	}

	return s.transform(data, "ページの回転に失敗しました。", func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return pdfapi.Rotate(rs, w, rotation, []string{strconv.Itoa(page)}, conf)
	})
}

func normalizeRotation(deg int) int {
	return ((deg % 360) + 360) % 360
}
