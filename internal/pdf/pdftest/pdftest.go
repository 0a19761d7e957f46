// Package pdftest はテスト用の最小PDFを組み立てます。
package pdftest

import (
	"fmt"
	"strings"
)

// Build は各ページの幅を widths で指定したPDFを返します。
// 幅はページ順序の確認に使えるよう、ページごとに変えて渡してください。
func Build(widths ...int) []byte {
	pageCount := len(widths)
	fontObj := 3 + 2*pageCount
	size := fontObj + 1

	var b strings.Builder
	offsets := make([]int, size)

	b.WriteString("%PDF-1.4\n")

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pageCount)
	for i := range widths {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}
	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), pageCount)

	for i, w := range widths {
		offsets[pageObj(i)] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>\nendobj\n",
			pageObj(i), w, pageObj(i)+1, fontObj)

		stream := fmt.Sprintf("BT\n/F1 12 Tf\n72 720 Td\n(Page %d) Tj\nET", i+1)
		offsets[pageObj(i)+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", pageObj(i)+1, len(stream), stream)
	}

	offsets[fontObj] = b.Len()
	fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n", fontObj)

	xrefOffset := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", size)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xrefOffset)

	return []byte(b.String())
}

// Pages は幅 100, 200, ... の n ページPDFを返します。
func Pages(n int) []byte {
	widths := make([]int, n)
	for i := range widths {
		widths[i] = (i + 1) * 100
	}
	return Build(widths...)
}

func pageObj(i int) int {
	return 3 + 2*i
}
