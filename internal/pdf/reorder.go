package pdf

import (
	"context"
	"io"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Reorder は from 番目のページを to 番目へ移動したPDFを返します（1-based）。
// 他のページの相対順は維持されます。from == to のときは入力の複製を返します。
func (s *Service) Reorder(ctx context.Context, data []byte, from, to int) ([]byte, error) {
	total, err := s.PageCount(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := checkPageRef(from, total); err != nil {
		return nil, err
	}
	if err := checkPageRef(to, total); err != nil {
		return nil, err
	}
	if from == to {
		return cloneBytes(data), nil
	}

	order := MoveOrder(total, from, to)
	if err := validateOrder(order, total); err != nil {
		return nil, err
	}

	selectedPages := make([]string, len(order))
	for i, idx := range order {
		selectedPages[i] = strconv.Itoa(idx + 1)
	}

	return s.transform(data, "PDFのページ入替に失敗しました。ファイルが破損していないか確認してください。", func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return pdfapi.Collect(rs, w, selectedPages, conf)
	})
}

// MoveOrder は total ページの並びで from を to へ移した後の 0-based ページ順を返します。
func MoveOrder(total, from, to int) []int {
	order := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if i != from-1 {
			order = append(order, i)
		}
	}
	dst := to - 1
	order = append(order, 0)
	copy(order[dst+1:], order[dst:])
	order[dst] = from - 1
	return order
}

func validateOrder(order []int, pageCount int) error {
	if len(order) != pageCount {
		return newError(CodeInvalidInput, "order配列の長さがページ数と一致していません。", nil)
	}

	seen := make([]bool, pageCount)
	for _, idx := range order {
		if idx < 0 || idx >= pageCount {
			return newError(CodeInvalidInput, "order配列に不正なページ番号が含まれています。", nil)
		}
		if seen[idx] {
			return newError(CodeInvalidInput, "order配列に重複した番号が含まれています。", nil)
		}
		seen[idx] = true
	}

	return nil
}
