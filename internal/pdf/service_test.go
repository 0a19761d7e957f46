package pdf

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/yourusername/page-forge/internal/pdf/pdftest"
)

func pageWidths(t *testing.T, svc *Service, data []byte) []float64 {
	t.Helper()
	info, err := svc.Inspect(context.Background(), data)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	widths := make([]float64, len(info.List))
	for i, p := range info.List {
		widths[i] = p.Width
	}
	return widths
}

func assertWidths(t *testing.T, got []float64, want ...float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unexpected page count: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page %d width = %v, want %v (all=%v)", i+1, got[i], want[i], got)
		}
	}
}

func TestPageCount(t *testing.T) {
	svc := NewService()
	n, err := svc.PageCount(context.Background(), pdftest.Pages(3))
	if err != nil {
		t.Fatalf("PageCount returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("PageCount = %d, want 3", n)
	}
}

func TestPageCountCorrupt(t *testing.T) {
	svc := NewService()
	for _, data := range [][]byte{nil, []byte("not a pdf at all")} {
		if _, err := svc.PageCount(context.Background(), data); !errors.Is(err, ErrCorruptDocument) {
			t.Fatalf("expected ErrCorruptDocument for %q, got %v", data, err)
		}
	}
}

func TestRotateAddsToExistingAngle(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	input := pdftest.Pages(3)
	original := append([]byte(nil), input...)

	once, err := svc.Rotate(ctx, input, 2, 90)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	twice, err := svc.Rotate(ctx, once, 2, 90)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}

	info, err := svc.Inspect(ctx, twice)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if info.Pages != 3 {
		t.Fatalf("Pages = %d, want 3", info.Pages)
	}
	if info.List[1].Rotation != 180 {
		t.Fatalf("page 2 rotation = %d, want 180", info.List[1].Rotation)
	}
	if info.List[0].Rotation != 0 || info.List[2].Rotation != 0 {
		t.Fatalf("other pages must stay unrotated: %+v", info.List)
	}
	if !bytes.Equal(input, original) {
		t.Fatal("input bytes were modified")
	}
}

func TestRotateFullTurnIsCopy(t *testing.T) {
	svc := NewService()
	input := pdftest.Pages(2)
	out, err := svc.Rotate(context.Background(), input, 1, 360)
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("expected unchanged bytes for a 360 degree rotation")
	}
	out[0] = 'X'
	if input[0] == 'X' {
		t.Fatal("output must not alias input")
	}
}

func TestRotateRejectsInvalidInput(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	input := pdftest.Pages(2)

	if _, err := svc.Rotate(ctx, input, 1, 45); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Rotate(ctx, input, 3, 90); !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
	if _, err := svc.Rotate(ctx, input, 0, 90); !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	svc := NewService()
	out, err := svc.Remove(context.Background(), pdftest.Pages(3), 2)
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	assertWidths(t, pageWidths(t, svc, out), 100, 300)
}

func TestRemoveSinglePage(t *testing.T) {
	svc := NewService()
	_, err := svc.Remove(context.Background(), pdftest.Pages(1), 1)
	if !errors.Is(err, ErrSinglePage) {
		t.Fatalf("expected ErrSinglePage, got %v", err)
	}
}

func TestReorderMovesSinglePage(t *testing.T) {
	svc := NewService()
	ctx := context.Background()
	input := pdftest.Pages(4)

	forward, err := svc.Reorder(ctx, input, 1, 3)
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	assertWidths(t, pageWidths(t, svc, forward), 200, 300, 100, 400)

	backward, err := svc.Reorder(ctx, input, 4, 2)
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	assertWidths(t, pageWidths(t, svc, backward), 100, 400, 200, 300)
}

func TestReorderSamePositionIsNoop(t *testing.T) {
	svc := NewService()
	input := pdftest.Pages(3)
	out, err := svc.Reorder(context.Background(), input, 2, 2)
	if err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("expected identical bytes when from == to")
	}
}

func TestReorderOutOfRange(t *testing.T) {
	svc := NewService()
	if _, err := svc.Reorder(context.Background(), pdftest.Pages(3), 1, 4); !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}

func TestMergeAppendsInOrder(t *testing.T) {
	svc := NewService()
	a := pdftest.Build(100, 200)
	b := pdftest.Build(700, 800, 900)

	out, added, err := svc.Merge(context.Background(), a, b)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if added != 3 {
		t.Fatalf("added = %d, want 3", added)
	}
	assertWidths(t, pageWidths(t, svc, out), 100, 200, 700, 800, 900)
}

func TestMergeCorruptOther(t *testing.T) {
	svc := NewService()
	_, _, err := svc.Merge(context.Background(), pdftest.Pages(2), []byte("%PDF-1.4 broken"))
	if !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestMoveOrder(t *testing.T) {
	cases := []struct {
		total, from, to int
		want            []int
	}{
		{3, 1, 3, []int{1, 2, 0}},
		{3, 3, 1, []int{2, 0, 1}},
		{4, 2, 3, []int{0, 2, 1, 3}},
		{2, 1, 1, []int{0, 1}},
	}
	for _, tc := range cases {
		got := MoveOrder(tc.total, tc.from, tc.to)
		if err := validateOrder(got, tc.total); err != nil {
			t.Fatalf("MoveOrder(%d,%d,%d) produced invalid order %v: %v", tc.total, tc.from, tc.to, got, err)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("MoveOrder(%d,%d,%d) = %v, want %v", tc.total, tc.from, tc.to, got, tc.want)
			}
		}
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := PageRangeError(5, 3)
	if !errors.Is(err, ErrPageRange) {
		t.Fatal("expected PageRangeError to match ErrPageRange")
	}
	if errors.Is(err, ErrSinglePage) {
		t.Fatal("PageRangeError must not match ErrSinglePage")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message == "" {
		t.Fatalf("expected *Error with message, got %#v", err)
	}
}
