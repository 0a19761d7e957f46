package editor

import "errors"

// ErrNoDocument は文書を開く前に操作しようとしたときに返されます。
var ErrNoDocument = errors.New("editor: no document loaded")
