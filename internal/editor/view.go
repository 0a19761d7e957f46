package editor

// View は表示中のページ番号（1-based）と総ページ数です。文書がなければ両方0です。
type View struct {
	Current int
	Total   int
}

// Sync は総ページ数と希望する表示ページから、範囲内に収めた View を作ります。
// total は必ず実際のスナップショットから数えた値を渡してください。
func Sync(total, proposed int) View {
	if total <= 0 {
		return View{}
	}
	if proposed < 1 {
		proposed = 1
	}
	if proposed > total {
		proposed = total
	}
	return View{Current: proposed, Total: total}
}

// followMove はページ移動後に表示ページがどこへずれるかを返します。
func followMove(current, from, to int) int {
	switch {
	case current == from:
		// 移動したページを追いかける
		return to
	case from < current && current <= to:
		return current - 1
	case to <= current && current < from:
		return current + 1
	default:
		return current
	}
}

// followDelete は deleted 番目を削除した後の表示ページを返します。
func followDelete(current, deleted int) int {
	if deleted <= current {
		return max(1, current-1)
	}
	return current
}
