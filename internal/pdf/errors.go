package pdf

// エラーコード一覧。HTTP応答の code フィールドにもそのまま使います。
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeCorruptDocument = "CORRUPT_DOCUMENT"
	CodePageRange       = "PAGE_OUT_OF_RANGE"
	CodeSinglePage      = "SINGLE_PAGE"
	CodeLimitExceeded   = "LIMIT_EXCEEDED"
)

// errors.Is 判定用の番兵です。Code のみで一致判定します。
var (
	ErrInvalidInput    = &Error{Code: CodeInvalidInput}
	ErrCorruptDocument = &Error{Code: CodeCorruptDocument}
	ErrPageRange       = &Error{Code: CodePageRange}
	ErrSinglePage      = &Error{Code: CodeSinglePage}
	ErrLimitExceeded   = &Error{Code: CodeLimitExceeded}
)

// Error はクライアントへ返すコードとメッセージを持つエラーです。
type Error struct {
	Code    string
	Message string
	Err     error
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is はコードが一致すれば同じ種類のエラーとみなします。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// PageRangeError はページ番号が範囲外のときのエラーを生成します。
func PageRangeError(ref, total int) *Error {
	return newError(CodePageRange, pageRangeMessage(ref, total), nil)
}

// SinglePageError は1ページしかない文書からの削除要求に対するエラーです。
func SinglePageError() *Error {
	return newError(CodeSinglePage, "ページが1つしかないため削除できません。", nil)
}

// LimitExceededError はページ数の上限超過を表すエラーです。
func LimitExceededError(pages, limit int) *Error {
	return newError(CodeLimitExceeded, limitMessage(pages, limit), nil)
}
