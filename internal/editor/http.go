package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/page-forge/internal/history"
	"github.com/yourusername/page-forge/internal/pdf"
)

const (
	// SessionKeyEditor はクッキーセッション内で編集セッションIDを保持するキーです。
	SessionKeyEditor = "editor_session"

	// ExportFilename はダウンロード時のファイル名です。
	ExportFilename = "edited-document.pdf"
)

// Registry はセッションIDごとに Session を保持し、操作を直列化します。
// *sessions.Registry が実装します。
type Registry interface {
	Open(ctx context.Context, filename string, data []byte) (string, State, error)
	Do(ctx context.Context, id string, fn func(*Session) error) (State, error)
	Close(ctx context.Context, id string) error
}

// Inspector はページ一覧を返します。*pdf.Service が実装します。
type Inspector interface {
	Inspect(ctx context.Context, data []byte) (*pdf.InspectResult, error)
}

// SessionBinder はリクエストと編集セッションIDを結び付けます。
type SessionBinder interface {
	Lookup(c *gin.Context) string
	Bind(c *gin.Context, id string) error
	Unbind(c *gin.Context) error
}

// CookieBinder は編集セッションIDをログインセッションのクッキーに保存します。
type CookieBinder struct{}

func (CookieBinder) Lookup(c *gin.Context) string {
	id, _ := sessions.Default(c).Get(SessionKeyEditor).(string)
	return id
}

func (CookieBinder) Bind(c *gin.Context, id string) error {
	session := sessions.Default(c)
	session.Set(SessionKeyEditor, id)
	return session.Save()
}

func (CookieBinder) Unbind(c *gin.Context) error {
	session := sessions.Default(c)
	session.Delete(SessionKeyEditor)
	return session.Save()
}

// HandlerOptions はアップロードの制限値です。
type HandlerOptions struct {
	MaxFileSize int64
}

// Handlers は /api/editor 配下のハンドラー群です。
type Handlers struct {
	registry  Registry
	inspector Inspector
	binder    SessionBinder
	opts      HandlerOptions
}

// NewHandlers は Handlers を作成します。
func NewHandlers(registry Registry, inspector Inspector, binder SessionBinder, opts HandlerOptions) *Handlers {
	return &Handlers{
		registry:  registry,
		inspector: inspector,
		binder:    binder,
		opts:      opts,
	}
}

// Register はルーティングを登録します。
func (h *Handlers) Register(group *gin.RouterGroup) {
	group.POST("/open", h.Open)
	group.GET("/state", h.State)
	group.GET("/pages", h.Pages)
	group.POST("/pages/move", h.Move)
	group.POST("/pages/:page/rotate", h.Rotate)
	group.POST("/pages/:page/select", h.Select)
	group.DELETE("/pages/:page", h.Delete)
	group.POST("/merge", h.Merge)
	group.POST("/undo", h.Undo)
	group.POST("/redo", h.Redo)
	group.GET("/export", h.Export)
	group.DELETE("", h.Close)
}

// Open は POST /api/editor/open のハンドラーです。
func (h *Handlers) Open(c *gin.Context) {
	filename, data, err := h.readPDFUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	previous := h.binder.Lookup(c)
	id, state, err := h.registry.Open(ctx, filename, data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// 結び付けに失敗した場合は新しい方だけを破棄し、以前の文書は残す
	if err := h.binder.Bind(c, id); err != nil {
		if closeErr := h.registry.Close(ctx, id); closeErr != nil {
			err = fmt.Errorf("%w (cleanup failed: %v)", err, closeErr)
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "セッションの保存に失敗しました",
		})
		return
	}

	if previous != "" && previous != id {
		if err := h.registry.Close(ctx, previous); err != nil {
			log.Printf("failed to close previous editor session %s: %v", previous, err)
		}
	}

	c.JSON(http.StatusOK, state)
}

// State は GET /api/editor/state のハンドラーです。
func (h *Handlers) State(c *gin.Context) {
	h.mutate(c, func(*Session) error { return nil })
}

// Pages は GET /api/editor/pages のハンドラーです。
func (h *Handlers) Pages(c *gin.Context) {
	var data []byte
	state, err := h.registry.Do(c.Request.Context(), h.binder.Lookup(c), func(s *Session) error {
		var err error
		data, err = s.Export()
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	info, err := h.inspector.Inspect(c.Request.Context(), data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state": state,
		"size":  info.Size,
		"pages": info.List,
	})
}

// Rotate は POST /api/editor/pages/:page/rotate のハンドラーです。
func (h *Handlers) Rotate(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	h.mutate(c, func(s *Session) error {
		_, err := s.RotatePage(c.Request.Context(), page)
		return err
	})
}

// Delete は DELETE /api/editor/pages/:page のハンドラーです。
func (h *Handlers) Delete(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	h.mutate(c, func(s *Session) error {
		_, err := s.DeletePage(c.Request.Context(), page)
		return err
	})
}

// Select は POST /api/editor/pages/:page/select のハンドラーです。
func (h *Handlers) Select(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	h.mutate(c, func(s *Session) error {
		_, err := s.SelectPage(page)
		return err
	})
}

// 0 もページ番号として範囲検証に回すため、未指定とは区別する
type moveRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// Move は POST /api/editor/pages/move のハンドラーです。
func (h *Handlers) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.From == nil || req.To == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    pdf.CodeInvalidInput,
			"message": "from と to を JSON で送ってください。",
		})
		return
	}
	from, to := *req.From, *req.To
	h.mutate(c, func(s *Session) error {
		_, err := s.MovePage(c.Request.Context(), from, to)
		return err
	})
}

// Merge は POST /api/editor/merge のハンドラーです。
func (h *Handlers) Merge(c *gin.Context) {
	_, data, err := h.readPDFUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.mutate(c, func(s *Session) error {
		_, err := s.AddPagesFrom(c.Request.Context(), data)
		return err
	})
}

// Undo は POST /api/editor/undo のハンドラーです。
func (h *Handlers) Undo(c *gin.Context) {
	h.mutate(c, func(s *Session) error {
		_, err := s.Undo(c.Request.Context())
		return err
	})
}

// Redo は POST /api/editor/redo のハンドラーです。
func (h *Handlers) Redo(c *gin.Context) {
	h.mutate(c, func(s *Session) error {
		_, err := s.Redo(c.Request.Context())
		return err
	})
}

// Export は GET /api/editor/export のハンドラーです。
func (h *Handlers) Export(c *gin.Context) {
	var data []byte
	_, err := h.registry.Do(c.Request.Context(), h.binder.Lookup(c), func(s *Session) error {
		var err error
		data, err = s.Export()
		return err
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	encodedName := url.PathEscape(ExportFilename)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", ExportFilename, encodedName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", data)
}

// Close は DELETE /api/editor のハンドラーです。
func (h *Handlers) Close(c *gin.Context) {
	if err := h.Release(c); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Release はリクエストに結び付いた編集セッションを破棄します。ログアウト時にも呼ばれます。
func (h *Handlers) Release(c *gin.Context) error {
	id := h.binder.Lookup(c)
	if id == "" {
		return nil
	}
	if err := h.registry.Close(c.Request.Context(), id); err != nil {
		return err
	}
	return h.binder.Unbind(c)
}

func (h *Handlers) mutate(c *gin.Context, fn func(*Session) error) {
	state, err := h.registry.Do(c.Request.Context(), h.binder.Lookup(c), fn)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handlers) readPDFUpload(c *gin.Context) (string, []byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return "", nil, &pdf.Error{Code: pdf.CodeInvalidInput, Message: "multipart/form-data でPDFファイルを送信してください。", Err: err}
	}
	defer form.RemoveAll()

	header, err := extractSingleFile(form)
	if err != nil {
		return "", nil, &pdf.Error{Code: pdf.CodeInvalidInput, Message: err.Error()}
	}
	if h.opts.MaxFileSize > 0 && header.Size > h.opts.MaxFileSize {
		return "", nil, &pdf.Error{
			Code:    pdf.CodeLimitExceeded,
			Message: fmt.Sprintf("ファイルサイズが上限（%dバイト）を超えています。", h.opts.MaxFileSize),
		}
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("アップロードファイルを開けませんでした: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("アップロードファイルの読み込みに失敗しました: %w", err)
	}

	if !mimetype.Detect(data).Is("application/pdf") {
		return "", nil, &pdf.Error{Code: pdf.CodeInvalidInput, Message: "PDFファイルのみアップロードできます。"}
	}
	return header.Filename, data, nil
}

func pageParam(c *gin.Context) (int, bool) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    pdf.CodeInvalidInput,
			"message": "ページ番号は整数で指定してください。",
		})
		return 0, false
	}
	return page, true
}

func respondWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *pdf.Error
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		if apiErr.Code == pdf.CodeLimitExceeded {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
	case errors.Is(err, ErrNoDocument):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "NO_DOCUMENT",
			"message": "PDFファイルを開いてから操作してください。",
		})
	case errors.Is(err, history.ErrNoHistory):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "NO_HISTORY",
			"message": "これ以上戻す（やり直す）操作はありません。",
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":    "REQUEST_CANCELED",
			"message": "リクエストがキャンセルされました。",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "サーバー内部でエラーが発生しました。",
		})
	}
}

func extractSingleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, errors.New("PDFファイルを選択してください。")
	}
	for _, key := range []string{"file", "file[]", "files", "files[]"} {
		if files := form.File[key]; len(files) > 0 {
			return files[0], nil
		}
	}
	return nil, errors.New("PDFファイルを選択してください。")
}
