// Package sessions は編集セッションの所有と有効期限を管理します。
package sessions

import "time"

// Record は編集セッションの現在状態の記録です。文書本体は含みません。
type Record struct {
	SessionID     string    `json:"sessionId"`
	Filename      string    `json:"filename"`
	CurrentPage   int       `json:"currentPage"`
	TotalPages    int       `json:"totalPages"`
	HistoryLength int       `json:"historyLength"`
	Cursor        int       `json:"cursor"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
